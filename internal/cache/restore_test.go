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

func newRestorer(pub EventPublisher, adapters ...backend.Adapter) *Restorer {
	return NewRestorer(RestorerConfig{Adapters: adapters, Logger: zerolog.Nop(), Events: pub})
}

func TestRestoreAny_FirstCompletionWins(t *testing.T) {
	kv := &mock.Adapter{ID: "key-value", RestoreDelay: 5 * time.Millisecond, RestoreBlob: blob.FromBytes([]byte{0x01, 0x02})}
	fs := &mock.Adapter{ID: "file-system", RestoreDelay: 50 * time.Millisecond, RestoreBlob: blob.FromBytes([]byte{0x03, 0x04})}
	r1 := &mock.Adapter{ID: "response", RestoreErr: errors.New("no cache api")}
	r2 := &mock.Adapter{ID: "handle", RestoreErr: backend.ErrPermissionDenied("handle", "denied")}

	res, found := newRestorer(nil, fs, r1, kv, r2).RestoreAny(context.Background())
	require.True(t, found)
	assert.Equal(t, "key-value", res.Backend)
	data, err := res.Blob.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, data)
}

func TestRestoreAny_FastFailureDoesNotPreemptSuccess(t *testing.T) {
	fail := &mock.Adapter{ID: "fail", RestoreErr: errors.New("boom")}
	ok := &mock.Adapter{ID: "ok", RestoreDelay: 20 * time.Millisecond, RestoreBlob: blob.FromBytes([]byte{9})}
	res, found := newRestorer(nil, fail, ok).RestoreAny(context.Background())
	require.True(t, found)
	assert.Equal(t, "ok", res.Backend)
}

func TestRestoreAny_NothingCachedIsNotAnError(t *testing.T) {
	pub := NewMemoryPublisher()
	r := newRestorer(pub,
		&mock.Adapter{ID: "a"},
		&mock.Adapter{ID: "b", RestoreErr: errors.New("unsupported")},
		backend.Unsupported("c", errors.New("no api")),
	)
	res, found := r.RestoreAny(context.Background())
	assert.False(t, found)
	assert.Nil(t, res.Blob)
	assert.Len(t, pub.Named(EventRestoreMiss), 1)
	assert.Len(t, pub.Named(EventRestoreFailed), 3)
}

func TestRestoreAny_NoAdapters(t *testing.T) {
	_, found := newRestorer(nil).RestoreAny(context.Background())
	assert.False(t, found)
}

func TestRestoreAny_LosersAreNotCancelled(t *testing.T) {
	fast := &mock.Adapter{ID: "fast", RestoreBlob: blob.FromBytes([]byte{1})}
	blocked := &mock.Adapter{ID: "blocked", Block: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, found := newRestorer(nil, fast, blocked).RestoreAny(ctx)
	require.True(t, found)
	assert.Equal(t, "fast", res.Backend)
	// The loser keeps waiting on a detached context even after ctx ends.
	cancel()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, blocked.RestoreCalls())
}

func TestRestoreAny_PanicIsContained(t *testing.T) {
	p := &panicAdapter{}
	ok := &mock.Adapter{ID: "ok", RestoreDelay: 5 * time.Millisecond, RestoreBlob: blob.FromBytes([]byte{1})}
	res, found := newRestorer(nil, p, ok).RestoreAny(context.Background())
	require.True(t, found)
	assert.Equal(t, "ok", res.Backend)
}

func TestRestoreAny_ContextEnds(t *testing.T) {
	slow := &mock.Adapter{ID: "slow", RestoreDelay: time.Second, RestoreBlob: blob.FromBytes([]byte{1})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, found := newRestorer(nil, slow).RestoreAny(ctx)
	assert.False(t, found)
}

type panicAdapter struct{}

func (panicAdapter) Name() string                                 { return "panics" }
func (panicAdapter) Store(context.Context, *blob.Blob) error      { panic("store") }
func (panicAdapter) Restore(context.Context) (*blob.Blob, error) { panic("restore") }
