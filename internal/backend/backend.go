// Package backend defines the contract shared by every persistent storage
// backend that can hold the cached model blob.
package backend

import (
	"context"

	"modelcache/internal/blob"
)

// StoredName is the single logical key the cached model lives under.
const StoredName = "model.bin"

// HandleName is the key under which a saved file handle is recorded.
const HandleName = StoredName + ".handle"

// Stable adapter names.
const (
	NameKeyValue   = "key-value-cache"
	NameFileSystem = "file-system-cache"
	NameResponse   = "response-cache"
	NameFileHandle = "file-handle-cache"
)

// Adapter wraps one persistent storage API.
//
// Store and Restore must be safe to call even when the underlying storage is
// not usable in the current environment; they fail instead of panicking.
// Adapters keep no in-memory state about the blob between calls.
type Adapter interface {
	Name() string
	Store(ctx context.Context, b *blob.Blob) error
	Restore(ctx context.Context) (*blob.Blob, error)
}

// Skipper is implemented by adapters that only accept some blobs.
// When Skip reports true the store orchestrator leaves the adapter out.
type Skipper interface {
	Skip(b *blob.Blob) bool
}

// DisplayName returns the human readable label used in status text.
func DisplayName(name string) string {
	switch name {
	case NameKeyValue:
		return "Key-Value Store"
	case NameFileSystem:
		return "Private File System"
	case NameResponse:
		return "Response Cache"
	case NameFileHandle:
		return "File Handle"
	default:
		return name
	}
}
