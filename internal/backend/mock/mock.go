// Package mock provides a scripted backend adapter for tests.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

// Adapter answers Store and Restore after a fixed delay with a fixed result.
// Zero values make Store succeed immediately and Restore report not found.
type Adapter struct {
	ID string

	StoreDelay time.Duration
	StoreErr   error
	StorePanic bool

	RestoreDelay time.Duration
	RestoreBlob  *blob.Blob
	RestoreErr   error
	// Block makes calls wait until ctx is done.
	Block bool

	storeCalls   atomic.Int32
	restoreCalls atomic.Int32
	storeDone    atomic.Int32

	mu     sync.Mutex
	stored *blob.Blob
}

var _ backend.Adapter = (*Adapter)(nil)

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return a.ID }

// Store implements backend.Adapter.
func (a *Adapter) Store(ctx context.Context, b *blob.Blob) error {
	a.storeCalls.Add(1)
	defer a.storeDone.Add(1)
	if err := wait(ctx, a.StoreDelay, a.Block); err != nil {
		return err
	}
	if a.StorePanic {
		panic("mock: store panic")
	}
	if a.StoreErr != nil {
		return a.StoreErr
	}
	a.mu.Lock()
	a.stored = b
	a.mu.Unlock()
	return nil
}

// Restore implements backend.Adapter.
func (a *Adapter) Restore(ctx context.Context) (*blob.Blob, error) {
	a.restoreCalls.Add(1)
	if err := wait(ctx, a.RestoreDelay, a.Block); err != nil {
		return nil, err
	}
	if a.RestoreErr != nil {
		return nil, a.RestoreErr
	}
	if a.RestoreBlob == nil {
		return nil, backend.ErrNotFound(a.ID, backend.StoredName)
	}
	return a.RestoreBlob, nil
}

// StoreCalls returns how many times Store was entered.
func (a *Adapter) StoreCalls() int { return int(a.storeCalls.Load()) }

// StoresFinished returns how many Store calls have returned.
func (a *Adapter) StoresFinished() int { return int(a.storeDone.Load()) }

// RestoreCalls returns how many times Restore was entered.
func (a *Adapter) RestoreCalls() int { return int(a.restoreCalls.Load()) }

// Stored returns the last successfully stored blob.
func (a *Adapter) Stored() *blob.Blob {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stored
}

func wait(ctx context.Context, d time.Duration, block bool) error {
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Skipping wraps a so that it is skipped for blobs matching fn.
type Skipping struct {
	*Adapter
	Fn func(*blob.Blob) bool
}

// Skip implements backend.Skipper.
func (s Skipping) Skip(b *blob.Blob) bool { return s.Fn(b) }
