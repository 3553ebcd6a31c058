// Package privatefs implements the private file system backend: a directory
// owned by modelcache where the model is written under its stored name.
package privatefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
	"modelcache/internal/common/fsutil"
)

// Config holds the root directory of the private file system.
type Config struct {
	Root   string
	Logger zerolog.Logger
}

// FS is the private file system adapter.
type FS struct {
	root string
	log  zerolog.Logger
}

var _ backend.Adapter = (*FS)(nil)

// New returns an adapter rooted at cfg.Root. The directory is created lazily.
func New(cfg Config) *FS {
	return &FS{root: cfg.Root, log: cfg.Logger}
}

// Name implements backend.Adapter.
func (f *FS) Name() string { return backend.NameFileSystem }

func (f *FS) filename() string { return filepath.Join(f.root, backend.StoredName) }

// Store writes the blob to a temporary file and renames it over the stored
// name, so readers never observe a partial file.
func (f *FS) Store(ctx context.Context, b *blob.Blob) (err error) {
	if f.root == "" {
		return backend.ErrUnavailable(f.Name(), errors.New("no root directory configured"))
	}
	if err := os.MkdirAll(f.root, 0o700); err != nil {
		return backend.ErrUnavailable(f.Name(), err)
	}
	tmp, err := os.CreateTemp(f.root, backend.StoredName+"-tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	rc, err := b.Open()
	if err != nil {
		return fmt.Errorf("open blob: %w", err)
	}
	defer rc.Close()
	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: rc})
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != b.Size() {
		return fmt.Errorf("wrote %d bytes instead of the expected %d bytes", n, b.Size())
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	// Close, then rename. Windows doesn't like the reverse order.
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.filename()); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if err = fsutil.SyncDir(f.root); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	f.log.Debug().Int64("bytes", n).Str("path", f.filename()).Msg("model cached in private file system")
	return nil
}

// Restore returns a file-backed blob for the stored model.
func (f *FS) Restore(ctx context.Context) (*blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.root == "" {
		return nil, backend.ErrUnavailable(f.Name(), errors.New("no root directory configured"))
	}
	b, err := blob.FromFile(f.filename())
	if errors.Is(err, os.ErrNotExist) {
		return nil, backend.ErrNotFound(f.Name(), backend.StoredName)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Persist asks the host to keep the private directory durable. It reports
// whether the directory was flushed.
func (f *FS) Persist(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !fsutil.PathExists(f.root) {
		return false, nil
	}
	if err := fsutil.SyncDir(f.root); err != nil {
		return false, err
	}
	return true, nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
