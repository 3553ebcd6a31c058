package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

// Result is a restored blob tagged with the backend that produced it.
type Result struct {
	Blob    *blob.Blob
	Backend string
}

// RestorerConfig configures a Restorer.
type RestorerConfig struct {
	Adapters []backend.Adapter
	Logger   zerolog.Logger
	Events   EventPublisher
}

// Restorer is the race restore orchestrator.
type Restorer struct {
	adapters []backend.Adapter
	log      zerolog.Logger
	events   EventPublisher
}

// NewRestorer returns a Restorer over cfg.Adapters.
func NewRestorer(cfg RestorerConfig) *Restorer {
	r := &Restorer{adapters: cfg.Adapters, log: cfg.Logger, events: cfg.Events}
	if r.events == nil {
		r.events = noopPublisher{}
	}
	return r
}

// RestoreAny probes every adapter concurrently and returns the first
// successful result by completion order. Later results are discarded; the
// losing probes are not cancelled. When every adapter fails, or ctx ends
// first, found is false. Absence is the normal cold-start state, not an error.
func (r *Restorer) RestoreAny(ctx context.Context) (res Result, found bool) {
	if len(r.adapters) == 0 {
		r.log.Info().Msg("No cached model found.")
		return Result{}, false
	}
	results := make(chan outcomeMsg, len(r.adapters))
	bg := context.WithoutCancel(ctx)
	for _, a := range r.adapters {
		go func(a backend.Adapter) {
			results <- r.restoreOne(bg, a)
		}(a)
	}

	for range r.adapters {
		select {
		case o := <-results:
			if o.err != nil {
				continue
			}
			restoreWinsTotal.WithLabelValues(o.backend).Inc()
			r.log.Info().Str("backend", o.backend).Int64("bytes", o.blob.Size()).Msg("cached model found")
			return Result{Blob: o.blob, Backend: o.backend}, true
		case <-ctx.Done():
			r.log.Debug().Err(ctx.Err()).Msg("restore probe abandoned")
			return Result{}, false
		}
	}
	r.log.Info().Msg("No cached model found.")
	r.events.Publish(Event{Name: EventRestoreMiss})
	return Result{}, false
}

func (r *Restorer) restoreOne(ctx context.Context, a backend.Adapter) (out outcomeMsg) {
	name := a.Name()
	out.backend = name
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.blob = nil
			out.err = fmt.Errorf("%s: panic during restore: %v", name, p)
		}
		if out.err == nil && out.blob == nil {
			out.err = backend.ErrNotFound(name, backend.StoredName)
		}
		dur := time.Since(start)
		observe(name, "restore", out.err, dur)
		if out.err != nil {
			// Absence and refused permission are expected; log quietly.
			ev := r.log.Debug()
			if !backend.IsNotFound(out.err) && !backend.IsPermissionDenied(out.err) && !backend.IsUnavailable(out.err) {
				ev = r.log.Warn()
			}
			ev.Err(out.err).Str("backend", name).Dur("dur", dur).Msg("restore probe failed")
			r.events.Publish(Event{Name: EventRestoreFailed, Backend: name, Fields: map[string]any{"error": out.err.Error()}})
			return
		}
		r.events.Publish(Event{Name: EventRestored, Backend: name, Fields: map[string]any{"dur": dur}})
	}()
	b, err := a.Restore(ctx)
	if err != nil {
		out.err = fmt.Errorf("%s: %w", name, err)
		return out
	}
	out.blob = b
	return out
}
