package backend

import (
	"context"

	"modelcache/internal/blob"
)

// unsupported stands in for an adapter whose storage could not be opened.
type unsupported struct {
	name  string
	cause error
}

// Unsupported returns an adapter that fails every call with an unavailable
// error. It keeps the adapter set fixed when a backend cannot be initialized.
func Unsupported(name string, cause error) Adapter {
	return unsupported{name: name, cause: cause}
}

func (u unsupported) Name() string { return u.name }

func (u unsupported) Store(context.Context, *blob.Blob) error {
	return ErrUnavailable(u.name, u.cause)
}

func (u unsupported) Restore(context.Context) (*blob.Blob, error) {
	return nil, ErrUnavailable(u.name, u.cause)
}
