//go:build !llama

package engine

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.

import "context"

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

type llamaEngine struct {
	cfg Config
}

// New returns the llama engine stub, which refuses to generate.
func New(cfg Config) Engine {
	return &llamaEngine{cfg: cfg}
}

func (e *llamaEngine) Available() error {
	return ErrUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) Generate(ctx context.Context, opts Options, prompt string, fn StreamFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.Available()
}
