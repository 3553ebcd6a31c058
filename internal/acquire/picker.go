package acquire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"modelcache/internal/blob"
	"modelcache/internal/common/fsutil"
)

// DefaultExtensions restricts the picker to binary model files.
var DefaultExtensions = []string{".bin"}

// Picker lets the user choose a local model file.
type Picker interface {
	// Pick returns the chosen file as a blob carrying its file handle, or
	// ErrPickCanceled when the user backs out.
	Pick(ctx context.Context) (*blob.Blob, error)
}

// PathPicker picks a path chosen ahead of time. An empty path counts as a
// dismissed picker.
type PathPicker struct {
	Path       string
	Extensions []string
}

// Pick implements Picker.
func (p PathPicker) Pick(ctx context.Context) (*blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Path) == "" {
		return nil, ErrPickCanceled
	}
	return openPicked(p.Path, p.Extensions)
}

// LinePicker asks for a path on Out and reads it from In. An empty line or
// end of input counts as a dismissed picker.
type LinePicker struct {
	In         io.Reader
	Out        io.Writer
	Extensions []string
}

// Pick implements Picker.
func (p LinePicker) Pick(ctx context.Context) (*blob.Blob, error) {
	exts := p.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	fmt.Fprintf(p.Out, "LLM model file (%s): ", strings.Join(exts, ", "))
	line := make(chan string, 1)
	go func() {
		s, _ := bufio.NewReader(p.In).ReadString('\n')
		line <- s
	}()
	select {
	case s := <-line:
		return PathPicker{Path: strings.TrimSpace(s), Extensions: exts}.Pick(ctx)
	case <-ctx.Done():
		return nil, ErrPickCanceled
	}
}

func openPicked(path string, exts []string) (*blob.Blob, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if !hasExtension(path, exts) {
		return nil, invalidFileError{name: filepath.Base(path), want: strings.Join(exts, ", ")}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	b, err := blob.FromFile(abs)
	if err != nil {
		return nil, err
	}
	h, err := blob.HandleFor(abs)
	if err != nil {
		return nil, err
	}
	return b.WithHandle(h), nil
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
