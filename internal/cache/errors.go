package cache

import (
	"errors"
	"strings"

	"modelcache/internal/backend"
)

// ErrNoAdapters is wrapped by the aggregate error when no backend took part.
var ErrNoAdapters = errors.New("no storage backend accepted the model")

// AggregateError collects the failure of every backend in a fan-out.
type AggregateError struct {
	Op   string
	Errs []error
}

func (e *AggregateError) Error() string {
	if len(e.Errs) == 0 {
		return e.Op + ": " + ErrNoAdapters.Error()
	}
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return e.Op + ": all backends failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes every backend error to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	if len(e.Errs) == 0 {
		return []error{ErrNoAdapters}
	}
	return e.Errs
}

// IsAggregate reports whether err is an AggregateError.
func IsAggregate(err error) bool {
	var ae *AggregateError
	return errors.As(err, &ae)
}

// outcome labels an adapter result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case backend.IsNotFound(err):
		return "not_found"
	case backend.IsPermissionDenied(err):
		return "permission_denied"
	case backend.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
