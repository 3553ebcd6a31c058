package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Adapters []backend.Adapter
	Logger   zerolog.Logger
	Events   EventPublisher
}

// Store is the redundant store orchestrator.
type Store struct {
	adapters []backend.Adapter
	log      zerolog.Logger
	events   EventPublisher
	wg       sync.WaitGroup
}

// NewStore returns a Store over cfg.Adapters.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{adapters: cfg.Adapters, log: cfg.Logger, events: cfg.Events}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	return s
}

type outcomeMsg struct {
	backend string
	blob    *blob.Blob
	err     error
}

// StoreEverywhere writes b to every adapter concurrently and returns the name
// of the first adapter that succeeds. A fast failure never pre-empts a slower
// success. The remaining writes continue in the background, detached from
// ctx cancellation; Wait blocks until they are done. If every adapter fails
// the result is an *AggregateError. If ctx ends before any adapter answers,
// ctx.Err() is returned and the writes still continue.
func (s *Store) StoreEverywhere(ctx context.Context, b *blob.Blob) (string, error) {
	var targets []backend.Adapter
	for _, a := range s.adapters {
		if sk, ok := a.(backend.Skipper); ok && sk.Skip(b) {
			s.log.Debug().Str("backend", a.Name()).Msg("backend skipped for this model")
			continue
		}
		targets = append(targets, a)
	}
	if len(targets) == 0 {
		return "", &AggregateError{Op: "store"}
	}

	// Buffered so that losers never block after the winner is chosen.
	results := make(chan outcomeMsg, len(targets))
	bg := context.WithoutCancel(ctx)
	for _, a := range targets {
		s.wg.Add(1)
		go func(a backend.Adapter) {
			defer s.wg.Done()
			results <- s.storeOne(bg, a, b)
		}(a)
	}

	errs := make([]error, 0, len(targets))
	for range targets {
		select {
		case r := <-results:
			if r.err == nil {
				return r.backend, nil
			}
			errs = append(errs, r.err)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", &AggregateError{Op: "store", Errs: errs}
}

func (s *Store) storeOne(ctx context.Context, a backend.Adapter, b *blob.Blob) (out outcomeMsg) {
	name := a.Name()
	out.backend = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("%s: panic during store: %v", name, r)
		}
		dur := time.Since(start)
		observe(name, "store", out.err, dur)
		if out.err != nil {
			s.log.Warn().Err(out.err).Str("backend", name).Dur("dur", dur).Msg("model cache store failed")
			s.events.Publish(Event{Name: EventStoreFailed, Backend: name, Fields: map[string]any{"error": out.err.Error()}})
			return
		}
		s.log.Info().Str("backend", name).Dur("dur", dur).Int64("bytes", b.Size()).Msg("model cached")
		s.events.Publish(Event{Name: EventStored, Backend: name, Fields: map[string]any{"dur": dur}})
	}()
	if err := a.Store(ctx, b); err != nil {
		out.err = fmt.Errorf("%s: %w", name, err)
	}
	return out
}

// Wait blocks until every store started so far has returned.
func (s *Store) Wait() { s.wg.Wait() }
