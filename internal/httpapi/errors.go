package httpapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"modelcache/internal/acquire"
	"modelcache/internal/session"
	"modelcache/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case session.IsNoModel(err):
		return http.StatusConflict
	case session.IsPrecondition(err):
		return http.StatusServiceUnavailable
	case acquire.IsBusy(err):
		IncrementBackpressure("download")
		return http.StatusConflict
	case session.IsBusy(err):
		IncrementBackpressure("generate")
		return http.StatusConflict
	case acquire.IsInvalidFile(err):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status and returns the status.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	writeJSONError(w, status, err.Error())
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
