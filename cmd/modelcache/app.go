package main

import (
	"os"
	"time"

	"modelcache/internal/acquire"
	"modelcache/internal/backend/handle"
	"modelcache/internal/cache"
	"modelcache/internal/engine"
	"modelcache/internal/registry"
	"modelcache/internal/session"
)

// app is one process lifetime wired from the resolved config.
type app struct {
	backends *registry.Set
	store    *cache.Store
	session  *session.Session
}

func newApp(opts *globalOptions, onProgress func(done, total int64)) (*app, error) {
	cfg := opts.cfg
	log := opts.log

	var prompter handle.Prompter
	if cfg.PromptPermissions {
		prompter = handle.TerminalPrompter{In: os.Stdin, Out: os.Stderr}
	}
	set, err := registry.Build(cfg, registry.Options{Logger: log, Prompter: prompter})
	if err != nil {
		return nil, err
	}
	store := cache.NewStore(cache.StoreConfig{Adapters: set.Adapters, Logger: log})
	refs := &session.References{}

	var dc *acquire.DownloadController
	if cfg.DownloadURL != "" {
		dl := acquire.NewDownloader(acquire.DownloaderConfig{Logger: log})
		dc = acquire.NewDownloadController(dl, cfg.DownloadURL, acquire.Options{
			ChunkSize:   cfg.ChunkSizeBytes,
			MaxParallel: cfg.MaxParallelRequests,
			OnProgress:  onProgress,
		})
	}

	s := session.New(session.Config{
		References: refs,
		Store:      store,
		Restorer:   cache.NewRestorer(cache.RestorerConfig{Adapters: set.Adapters, Logger: log}),
		Engine: engine.New(engine.Config{
			Resolver: refs,
			Threads:  cfg.LlamaThreads,
			CtxSize:  cfg.LlamaCtx,
		}),
		Download:  dc,
		Persister: set.Persister,
		Notices:   session.NewNotices(time.Duration(cfg.ErrorTTLMS) * time.Millisecond),
		Logger:    log,
		Defaults: session.Generation{
			MaxOutputTokens: cfg.MaxOutputTokens,
			TopK:            cfg.TopK,
			Temperature:     float32(cfg.Temperature),
		},
	})
	return &app{backends: set, store: store, session: s}, nil
}

// close waits for background stores before releasing the backends.
func (a *app) close() error {
	a.session.Wait()
	a.store.Wait()
	return a.backends.Close()
}
