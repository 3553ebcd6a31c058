package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"modelcache/internal/blob"
)

// Reference is an opaque process-local address for a blob, valid only while
// it is the current reference of the session that issued it.
type Reference string

// errStaleReference is returned when resolving a reference that was replaced.
var errStaleReference = errors.New("blob reference is no longer current")

// References holds the single current blob reference. Every Set replaces
// the previous one; the last write wins.
type References struct {
	mu   sync.RWMutex
	cur  Reference
	blob *blob.Blob
}

// Set issues a new reference for b and makes it current.
func (r *References) Set(b *blob.Blob) Reference {
	ref := Reference("blob:" + uuid.NewString())
	r.mu.Lock()
	r.cur = ref
	r.blob = b
	r.mu.Unlock()
	return ref
}

// Current returns the current reference and its blob.
func (r *References) Current() (Reference, *blob.Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.blob == nil {
		return "", nil, false
	}
	return r.cur, r.blob, true
}

// Resolve returns the blob for ref when ref is still current.
func (r *References) Resolve(ref string) (*blob.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.blob == nil || string(r.cur) != ref {
		return nil, errStaleReference
	}
	return r.blob, nil
}
