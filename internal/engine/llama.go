//go:build llama

package engine

import (
	"context"
	"io"
	"os"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine runs models in-process through go-llama.cpp.
type llamaEngine struct {
	cfg Config
}

// New returns the in-process llama engine.
func New(cfg Config) Engine {
	return &llamaEngine{cfg: cfg}
}

func (e *llamaEngine) Available() error {
	if e.cfg.Resolver == nil {
		return ErrUnavailable("no reference resolver configured")
	}
	return nil
}

func (e *llamaEngine) Generate(ctx context.Context, opts Options, prompt string, fn StreamFunc) error {
	if err := e.Available(); err != nil {
		return err
	}
	b, err := e.cfg.Resolver.Resolve(opts.ModelReference)
	if err != nil {
		return err
	}
	path, cleanup, err := modelPath(e.cfg.TempDir, b.Path(), b.Open)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := llama.New(path, llama.SetContext(zn(e.cfg.CtxSize, 2048)))
	if err != nil {
		return err
	}
	defer m.Free()

	// Bridge token streaming to fn and respect cancellation
	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		fn(tok, false)
		return true
	})
	if _, err := m.Predict(prompt, predictOptions(opts, e.cfg.Threads)...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	fn("", true)
	return nil
}

// modelPath returns a file path for the model, spilling in-memory blobs to a
// temporary file because the runtime loads models by path.
func modelPath(dir, path string, open func() (io.ReadCloser, error)) (string, func(), error) {
	if strings.TrimSpace(path) != "" {
		return path, func() {}, nil
	}
	rc, err := open()
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()
	f, err := os.CreateTemp(dir, "modelcache-*.bin")
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Options into go-llama.cpp predict options.
func predictOptions(opts Options, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, opts.MaxOutputTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopK(zn(opts.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(opts.Temperature, llama.DefaultOptions.Temperature)),
	}
	if opts.RandomSeed != 0 {
		po = append(po, llama.SetSeed(opts.RandomSeed))
	}
	return po
}
