// Package handle implements the saved file-handle backend. Instead of the
// model bytes it records where the user's own copy lives, and re-opens that
// file on restore once read permission is confirmed.
package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

// KV is the key-value store handle records are kept in.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config configures the handle adapter.
type Config struct {
	KV          KV
	Permissions Permissions
	Logger      zerolog.Logger
}

// Adapter is the file-handle backend adapter.
type Adapter struct {
	kv    KV
	perms Permissions
	log   zerolog.Logger
}

var (
	_ backend.Adapter = (*Adapter)(nil)
	_ backend.Skipper = (*Adapter)(nil)
)

// New returns a handle adapter.
func New(cfg Config) *Adapter {
	return &Adapter{kv: cfg.KV, perms: cfg.Permissions, log: cfg.Logger}
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return backend.NameFileHandle }

// Skip reports true for blobs acquired without a file handle.
func (a *Adapter) Skip(b *blob.Blob) bool { return b.Handle() == nil }

// Store records the blob's file handle.
func (a *Adapter) Store(ctx context.Context, b *blob.Blob) error {
	h := b.Handle()
	if h == nil {
		return errors.New("blob has no file handle")
	}
	if a.kv == nil {
		return backend.ErrUnavailable(a.Name(), errors.New("no key-value store configured"))
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal handle: %w", err)
	}
	if err := a.kv.Put(ctx, backend.HandleName, data); err != nil {
		return err
	}
	if g, ok := a.perms.(Granter); ok {
		g.Grant(*h)
	}
	a.log.Debug().Str("path", h.Path).Msg("model file handle cached")
	return nil
}

// Restore loads the saved handle, checks permission (asking once if needed)
// and opens the file. A denied or unanswered request fails without retry.
func (a *Adapter) Restore(ctx context.Context) (*blob.Blob, error) {
	if a.kv == nil || a.perms == nil {
		return nil, backend.ErrUnavailable(a.Name(), errors.New("handle adapter not configured"))
	}
	data, err := a.kv.Get(ctx, backend.HandleName)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, backend.ErrNotFound(a.Name(), backend.HandleName)
		}
		return nil, err
	}
	var h blob.FileHandle
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode handle: %w", err)
	}
	if _, err := os.Stat(h.Path); errors.Is(err, os.ErrNotExist) {
		return nil, backend.ErrNotFound(a.Name(), h.Path)
	}

	st, err := a.perms.Query(ctx, h)
	if err != nil {
		return nil, err
	}
	if st != Granted {
		st, err = a.perms.Request(ctx, h)
		if err != nil {
			return nil, err
		}
		if st != Granted {
			return nil, backend.ErrPermissionDenied(a.Name(), string(st))
		}
	}

	b, err := blob.FromFile(h.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, backend.ErrNotFound(a.Name(), h.Path)
	}
	if err != nil {
		return nil, err
	}
	return b.WithHandle(&h), nil
}
