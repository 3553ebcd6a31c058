// Package engine is the boundary to the text-generation runtime. The runtime
// only ever sees a blob reference; it resolves the reference through the
// session that issued it.
package engine

import (
	"context"

	"modelcache/internal/blob"
)

// Defaults for generation options.
const (
	DefaultMaxOutputTokens = 1000
	DefaultTopK            = 40
	DefaultTemperature     = 0.8
	// Seeds are drawn from [0, MaxRandomSeed].
	MaxRandomSeed = 1000
)

// Options is the configuration record handed to the runtime per request.
type Options struct {
	ModelReference  string
	MaxOutputTokens int
	TopK            int
	Temperature     float32
	RandomSeed      int
}

// StreamFunc receives partial output. done is true exactly once, on the last call.
type StreamFunc func(partial string, done bool)

// Engine generates text from a prompt.
type Engine interface {
	// Available reports whether the runtime can run in this process.
	Available() error
	// Generate streams output for prompt to fn until done or ctx ends.
	Generate(ctx context.Context, opts Options, prompt string, fn StreamFunc) error
}

// Resolver maps a blob reference to the blob it was issued for.
type Resolver interface {
	Resolve(ref string) (*blob.Blob, error)
}

// Config holds runtime tunables.
type Config struct {
	Resolver Resolver
	Threads  int
	CtxSize  int
	// TempDir receives spilled in-memory models; defaults to os.TempDir().
	TempDir string
}
