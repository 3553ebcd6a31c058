// Package registry builds the fixed set of storage backends from configuration.
package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/backend/handle"
	"modelcache/internal/backend/kvstore"
	"modelcache/internal/backend/privatefs"
	"modelcache/internal/backend/respcache"
	"modelcache/internal/common/fsutil"
	"modelcache/internal/config"
)

// Layout of the data directory.
const (
	KVFile      = "kv.sqlite"
	PrivateDir  = "private"
	ResponseDir = "responses"
)

// Options are the inputs Build needs beyond the config file.
type Options struct {
	Logger zerolog.Logger
	// Prompter asks the user to re-grant file access; nil never asks.
	Prompter handle.Prompter
}

// Set is the configured backend set.
type Set struct {
	Adapters []backend.Adapter
	// Persister flushes the private directory after a store.
	Persister *privatefs.FS
	closers   []io.Closer
}

// Close releases databases and connections held by the backends.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build opens every enabled backend under cfg.DataDir. A backend that cannot
// be opened is replaced by one that fails every call, so the remaining
// backends keep working.
func Build(cfg config.Config, opts Options) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := fsutil.ExpandHome(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, errors.New("data directory is not set")
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	log := opts.Logger
	set := &Set{Persister: privatefs.New(privatefs.Config{Root: filepath.Join(dir, PrivateDir), Logger: log})}

	enabled := map[string]bool{}
	for _, b := range cfg.Backends {
		enabled[b] = true
	}

	// The handle backend keeps its records in the key-value database, so
	// the database is opened when either needs it.
	var kv *kvstore.Store
	var kvErr error
	if enabled[backend.NameKeyValue] || enabled[backend.NameFileHandle] {
		kv, kvErr = kvstore.Open(kvstore.Config{Path: filepath.Join(dir, KVFile), Logger: log})
		if kvErr != nil {
			log.Warn().Err(kvErr).Msg("key-value store unavailable")
		} else {
			set.closers = append(set.closers, kv)
		}
	}

	for _, name := range cfg.Backends {
		switch name {
		case backend.NameKeyValue:
			if kv == nil {
				set.Adapters = append(set.Adapters, backend.Unsupported(name, kvErr))
				continue
			}
			set.Adapters = append(set.Adapters, kv)
		case backend.NameFileSystem:
			set.Adapters = append(set.Adapters, set.Persister)
		case backend.NameResponse:
			set.Adapters = append(set.Adapters, responseCache(cfg, dir, log, set))
		case backend.NameFileHandle:
			if kv == nil {
				set.Adapters = append(set.Adapters, backend.Unsupported(name, kvErr))
				continue
			}
			set.Adapters = append(set.Adapters, handle.New(handle.Config{
				KV:          kv,
				Permissions: handle.NewSessionPermissions(opts.Prompter),
				Logger:      log,
			}))
		}
	}
	log.Debug().Strs("backends", cfg.Backends).Str("dir", dir).Msg("backends ready")
	return set, nil
}

func responseCache(cfg config.Config, dir string, log zerolog.Logger, set *Set) backend.Adapter {
	if cfg.RedisURL == "" {
		return respcache.New(respcache.Config{Store: respcache.NewDirStore(filepath.Join(dir, ResponseDir)), Logger: log})
	}
	rs, err := respcache.NewRedisStore(respcache.RedisConfig{URL: cfg.RedisURL})
	if err != nil {
		log.Warn().Err(err).Msg("response cache unavailable")
		return backend.Unsupported(backend.NameResponse, err)
	}
	set.closers = append(set.closers, rs)
	return respcache.New(respcache.Config{Store: rs, Logger: log})
}
