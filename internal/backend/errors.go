package backend

import (
	"errors"
	"fmt"
)

// notFoundError signals the expected absence of a cached entry.
type notFoundError struct{ backend, key string }

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.backend, e.key)
}

// ErrNotFound returns an error reporting that key is absent from backend.
func ErrNotFound(backend, key string) error { return notFoundError{backend: backend, key: key} }

// IsNotFound reports whether err indicates a missing entry.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// unavailableError signals that the storage API cannot be used here.
type unavailableError struct {
	backend string
	err     error
}

func (e unavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.backend, e.err)
}

func (e unavailableError) Unwrap() error { return e.err }

// ErrUnavailable wraps cause as an unavailable-backend error.
func ErrUnavailable(backend string, cause error) error {
	return unavailableError{backend: backend, err: cause}
}

// IsUnavailable reports whether err indicates an unusable backend.
func IsUnavailable(err error) bool {
	var e unavailableError
	return errors.As(err, &e)
}

// permissionDeniedError signals that read access was not granted.
type permissionDeniedError struct{ backend, state string }

func (e permissionDeniedError) Error() string {
	return fmt.Sprintf("%s: permission %s", e.backend, e.state)
}

// ErrPermissionDenied reports a permission request that ended in state.
func ErrPermissionDenied(backend, state string) error {
	return permissionDeniedError{backend: backend, state: state}
}

// IsPermissionDenied reports whether err indicates a refused or pending grant.
func IsPermissionDenied(err error) bool {
	var e permissionDeniedError
	return errors.As(err, &e)
}
