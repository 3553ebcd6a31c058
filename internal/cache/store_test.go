package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelcache/internal/backend"
	"modelcache/internal/backend/mock"
	"modelcache/internal/blob"
)

func newStore(pub EventPublisher, adapters ...backend.Adapter) *Store {
	return NewStore(StoreConfig{Adapters: adapters, Logger: zerolog.Nop(), Events: pub})
}

func TestStoreEverywhere_AnySuccessWins(t *testing.T) {
	failing := &mock.Adapter{ID: "fast-fail", StoreErr: errors.New("quota exceeded")}
	panicking := &mock.Adapter{ID: "panics", StorePanic: true}
	slowOK := &mock.Adapter{ID: "slow-ok", StoreDelay: 30 * time.Millisecond}
	unsupported := backend.Unsupported("unsupported", errors.New("no api"))

	s := newStore(nil, failing, panicking, slowOK, unsupported)
	winner, err := s.StoreEverywhere(context.Background(), blob.FromBytes([]byte{1}))
	require.NoError(t, err)
	assert.Equal(t, "slow-ok", winner)
	s.Wait()
}

func TestStoreEverywhere_ReturnsWithoutWaitingForLosers(t *testing.T) {
	fast := &mock.Adapter{ID: "fast"}
	slow := &mock.Adapter{ID: "slow", StoreDelay: 200 * time.Millisecond}
	pub := NewMemoryPublisher()
	s := newStore(pub, fast, slow)

	start := time.Now()
	winner, err := s.StoreEverywhere(context.Background(), blob.FromBytes([]byte{1}))
	require.NoError(t, err)
	assert.Equal(t, "fast", winner)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 0, slow.StoresFinished(), "loser must still be running")

	// Losers are not cancelled: the slow store completes in the background.
	s.Wait()
	assert.Equal(t, 1, slow.StoresFinished())
	assert.NotNil(t, slow.Stored())
	assert.Len(t, pub.Named(EventStored), 2)
}

func TestStoreEverywhere_AllFailIsAggregate(t *testing.T) {
	e1 := errors.New("disk full")
	a1 := &mock.Adapter{ID: "a", StoreErr: e1}
	a2 := &mock.Adapter{ID: "b", StoreErr: errors.New("denied"), StoreDelay: 10 * time.Millisecond}
	pub := NewMemoryPublisher()
	s := newStore(pub, a1, a2)

	_, err := s.StoreEverywhere(context.Background(), blob.FromBytes([]byte{1}))
	require.Error(t, err)
	assert.True(t, IsAggregate(err))
	assert.ErrorIs(t, err, e1)
	var ae *AggregateError
	require.ErrorAs(t, err, &ae)
	assert.Len(t, ae.Errs, 2)
	assert.Len(t, pub.Named(EventStoreFailed), 2)
}

func TestStoreEverywhere_SkipsHandleAdapterWithoutHandle(t *testing.T) {
	handleAdapter := mock.Skipping{
		Adapter: &mock.Adapter{ID: backend.NameFileHandle, StoreErr: errors.New("must not be called")},
		Fn:      func(b *blob.Blob) bool { return b.Handle() == nil },
	}
	kv := &mock.Adapter{ID: backend.NameKeyValue, StoreDelay: 5 * time.Millisecond}
	s := newStore(nil, handleAdapter, kv)

	winner, err := s.StoreEverywhere(context.Background(), blob.FromBytes([]byte{1}))
	require.NoError(t, err)
	assert.Equal(t, backend.NameKeyValue, winner)
	s.Wait()
	assert.Equal(t, 0, handleAdapter.StoreCalls())
}

func TestStoreEverywhere_NoEligibleAdapters(t *testing.T) {
	only := mock.Skipping{Adapter: &mock.Adapter{ID: "h"}, Fn: func(*blob.Blob) bool { return true }}
	_, err := newStore(nil, only).StoreEverywhere(context.Background(), blob.FromBytes([]byte{1}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAdapters)
}

func TestStoreEverywhere_ContextEndsBeforeAnyAnswer(t *testing.T) {
	slow := &mock.Adapter{ID: "slow", StoreDelay: 100 * time.Millisecond}
	s := newStore(nil, slow)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.StoreEverywhere(ctx, blob.FromBytes([]byte{1}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	s.Wait()
	assert.NotNil(t, slow.Stored(), "detached store still completes")
}
