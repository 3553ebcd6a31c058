// Package blob defines the immutable model payload passed between acquisition,
// the storage backends and the generation engine.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"
)

// FileHandle is a durable pointer to a file the user picked on the local host.
// It can be saved and later re-opened once read permission is confirmed.
type FileHandle struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Blob is a model payload that is either fully resident in memory or backed by
// a locally accessible file. Blobs are never partial and never mutated.
type Blob struct {
	data   []byte
	path   string
	size   int64
	handle *FileHandle
}

// FromBytes wraps data as an in-memory blob. Callers must not modify data afterwards.
func FromBytes(data []byte) *Blob {
	return &Blob{data: data, size: int64(len(data))}
}

// FromFile returns a blob backed by the file at path.
func FromFile(path string) (*Blob, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &Blob{path: path, size: fi.Size()}, nil
}

// WithHandle returns a copy of b carrying the given file handle.
func (b *Blob) WithHandle(h *FileHandle) *Blob {
	c := *b
	c.handle = h
	return &c
}

// Handle returns the file handle the blob was acquired with, or nil.
func (b *Blob) Handle() *FileHandle { return b.handle }

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 { return b.size }

// Path returns the backing file path; empty for in-memory blobs.
func (b *Blob) Path() string { return b.path }

// Open returns a reader over the full payload.
func (b *Blob) Open() (io.ReadCloser, error) {
	if b.path == "" {
		return io.NopCloser(bytes.NewReader(b.data)), nil
	}
	return os.Open(b.path)
}

// Bytes returns the payload. For in-memory blobs the returned slice is shared
// and must be treated as read-only.
func (b *Blob) Bytes() ([]byte, error) {
	if b.path == "" {
		return b.data, nil
	}
	return os.ReadFile(b.path)
}

// HandleFor builds a FileHandle for the file at path.
func HandleFor(path string) (*FileHandle, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileHandle{Path: path, Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime().UTC()}, nil
}
