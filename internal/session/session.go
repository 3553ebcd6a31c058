// Package session owns the state of one process lifetime: the current blob
// reference, the one-shot restore probe, ambient notices, and the prompt
// output. Every entry point of the user surface goes through a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelcache/internal/acquire"
	"modelcache/internal/backend"
	"modelcache/internal/blob"
	"modelcache/internal/cache"
	"modelcache/internal/engine"
)

// Sources of the current model other than a backend name.
const (
	SourceLocal    = "local"
	SourceDownload = "download"
)

// Storer persists a blob redundantly.
type Storer interface {
	StoreEverywhere(ctx context.Context, b *blob.Blob) (string, error)
}

// Restorer races a restore across backends.
type Restorer interface {
	RestoreAny(ctx context.Context) (cache.Result, bool)
}

// Persister asks the host to keep stored data durable.
type Persister interface {
	Persist(ctx context.Context) (bool, error)
}

// Generation holds the option defaults applied to every submit.
type Generation struct {
	MaxOutputTokens int
	TopK            int
	Temperature     float32
}

// Config wires a Session.
type Config struct {
	References *References
	Store      Storer
	Restorer   Restorer
	Engine     engine.Engine
	// Download is nil when no download URL is configured.
	Download  *acquire.DownloadController
	Persister Persister
	Notices   *Notices
	Logger    zerolog.Logger
	Defaults  Generation
	// Seed draws a random seed per submit; defaults to uniform [0, engine.MaxRandomSeed].
	Seed func() int
}

// Session is the explicitly owned state behind the user surface.
type Session struct {
	refs      *References
	store     Storer
	restorer  Restorer
	engine    engine.Engine
	download  *acquire.DownloadController
	persister Persister
	notices   *Notices
	log       zerolog.Logger
	defaults  Generation
	seed      func() int

	gate Gate
	wg   sync.WaitGroup

	mu      sync.Mutex
	source  string
	prompt  string
	output  strings.Builder
	running bool
}

// New returns a Session. References and Notices are created when nil.
func New(cfg Config) *Session {
	s := &Session{
		refs:      cfg.References,
		store:     cfg.Store,
		restorer:  cfg.Restorer,
		engine:    cfg.Engine,
		download:  cfg.Download,
		persister: cfg.Persister,
		notices:   cfg.Notices,
		log:       cfg.Logger,
		defaults:  cfg.Defaults,
		seed:      cfg.Seed,
	}
	if s.refs == nil {
		s.refs = &References{}
	}
	if s.notices == nil {
		s.notices = NewNotices(DefaultErrorTTL)
	}
	if s.defaults.MaxOutputTokens <= 0 {
		s.defaults.MaxOutputTokens = engine.DefaultMaxOutputTokens
	}
	if s.defaults.TopK <= 0 {
		s.defaults.TopK = engine.DefaultTopK
	}
	if s.defaults.Temperature <= 0 {
		s.defaults.Temperature = engine.DefaultTemperature
	}
	if s.seed == nil {
		s.seed = func() int { return rand.Intn(engine.MaxRandomSeed + 1) }
	}
	return s
}

// References returns the reference slot, which doubles as the engine's resolver.
func (s *Session) References() *References { return s.refs }

// Notices returns the ambient notices.
func (s *Session) Notices() *Notices { return s.notices }

// Interact records a user interaction. The first call starts the restore
// probe in the background; later calls of any kind do nothing. It reports
// whether this call started the probe.
func (s *Session) Interact(ctx context.Context) bool {
	return s.gate.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Probe(context.WithoutCancel(ctx))
		}()
	})
}

// Probe races a restore across every backend. A hit becomes the current
// reference and sets the info line; a miss is silent.
func (s *Session) Probe(ctx context.Context) (string, bool) {
	if s.restorer == nil {
		return "", false
	}
	start := time.Now()
	res, found := s.restorer.RestoreAny(ctx)
	if !found {
		return "", false
	}
	s.setCurrent(res.Blob, res.Backend)
	s.notices.Info(fmt.Sprintf("Cached model found in %s.", backend.DisplayName(res.Backend)))
	s.log.Info().Str("backend", res.Backend).Dur("dur", time.Since(start)).Msg("cached model restored")
	return res.Backend, true
}

// Adopt makes b the current model right away and stores it in the
// background. A total store failure surfaces as a transient error.
func (s *Session) Adopt(ctx context.Context, b *blob.Blob, source string) Reference {
	ref := s.setCurrent(b, source)
	if s.store == nil {
		return ref
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.WithoutCancel(ctx)
		winner, err := s.store.StoreEverywhere(ctx, b)
		if err != nil {
			s.log.Error().Err(err).Msg("model could not be cached")
			s.notices.Error("Failed to cache model: " + err.Error())
			return
		}
		s.log.Debug().Str("winner", winner).Msg("model stored")
		if s.persister == nil {
			return
		}
		persisted, err := s.persister.Persist(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("persist storage")
			return
		}
		s.log.Info().Bool("persisted", persisted).Msg("storage persistence requested")
	}()
	return ref
}

func (s *Session) setCurrent(b *blob.Blob, source string) Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
	return s.refs.Set(b)
}

// LoadLocal acquires a model through picker. A dismissed picker is a no-op
// and returns an empty reference with a nil error.
func (s *Session) LoadLocal(ctx context.Context, picker acquire.Picker) (Reference, error) {
	b, err := picker.Pick(ctx)
	if err != nil {
		if acquire.IsCanceled(err) {
			s.log.Debug().Msg("file pick canceled")
			return "", nil
		}
		s.notices.Error(err.Error())
		return "", err
	}
	return s.Adopt(ctx, b, SourceLocal), nil
}

var errNoDownload = errors.New("no download url configured")

// Download runs the chunked download to completion. Cancellation returns an
// empty reference and a nil error with no notice.
func (s *Session) Download(ctx context.Context) (Reference, error) {
	if s.download == nil {
		return "", errNoDownload
	}
	b, err := s.download.Start(ctx)
	if err != nil {
		switch {
		case acquire.IsBusy(err):
			return "", err
		case acquire.IsCanceled(err):
			return "", nil
		}
		s.notices.Error(err.Error())
		return "", err
	}
	return s.Adopt(ctx, b, SourceDownload), nil
}

// StartDownload runs Download in the background.
func (s *Session) StartDownload(ctx context.Context) error {
	if s.download == nil {
		return errNoDownload
	}
	if s.download.Progress().Active {
		return acquire.ErrBusy
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.Download(context.WithoutCancel(ctx))
	}()
	return nil
}

// CancelDownload aborts the running download and reports whether one was running.
func (s *Session) CancelDownload() bool {
	if s.download == nil {
		return false
	}
	return s.download.Cancel()
}

// DownloadProgress returns the download indicator state.
func (s *Session) DownloadProgress() acquire.Progress {
	if s.download == nil {
		return acquire.Progress{}
	}
	return s.download.Progress()
}

// Submit generates a response for prompt with the current model. Output
// replaces the previous response and is streamed to onPartial as it grows.
// Without a model it fails with ErrNoModel and never reaches the engine.
func (s *Session) Submit(ctx context.Context, prompt string, onPartial func(string)) (string, error) {
	ref, _, ok := s.refs.Current()
	if !ok {
		s.notices.Error(MsgLoadModelFirst)
		return "", ErrNoModel
	}
	if err := s.engine.Available(); err != nil {
		s.notices.Alert(err.Error())
		return "", preconditionError{msg: err.Error()}
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", errGenerating
	}
	s.running = true
	s.prompt = prompt
	s.output.Reset()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	opts := engine.Options{
		ModelReference:  string(ref),
		MaxOutputTokens: s.defaults.MaxOutputTokens,
		TopK:            s.defaults.TopK,
		Temperature:     s.defaults.Temperature,
		RandomSeed:      s.seed(),
	}
	err := s.engine.Generate(ctx, opts, prompt, func(partial string, done bool) {
		s.mu.Lock()
		s.output.WriteString(partial)
		s.mu.Unlock()
		if onPartial != nil && partial != "" {
			onPartial(partial)
		}
	})
	out := s.Output()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.notices.Error(err.Error())
		}
		return out, err
	}
	return out, nil
}

// Output returns the accumulated response text.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}

// Reset clears the prompt and the response.
func (s *Session) Reset() {
	s.mu.Lock()
	s.prompt = ""
	s.output.Reset()
	s.mu.Unlock()
}

// Ready reports whether a prompt can be answered right now.
func (s *Session) Ready() error {
	if _, _, ok := s.refs.Current(); !ok {
		return ErrNoModel
	}
	return s.engine.Available()
}

// Status is a point-in-time view of the session.
type Status struct {
	Reference  Reference
	Source     string
	ModelBytes int64
	Probed     bool
	Generating bool
	Prompt     string
	Output     string
	Notices    NoticeSnapshot
	Download   acquire.Progress
}

// Status returns the current state.
func (s *Session) Status() Status {
	ref, b, _ := s.refs.Current()
	s.mu.Lock()
	st := Status{
		Reference:  ref,
		Source:     s.source,
		Probed:     s.gate.Fired(),
		Generating: s.running,
		Prompt:     s.prompt,
		Output:     s.output.String(),
	}
	s.mu.Unlock()
	if b != nil {
		st.ModelBytes = b.Size()
	}
	st.Notices = s.notices.Snapshot()
	st.Download = s.DownloadProgress()
	return st
}

// Wait blocks until background probes, stores and downloads finish.
func (s *Session) Wait() { s.wg.Wait() }
