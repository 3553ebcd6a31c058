package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modelcache/internal/acquire"
	"modelcache/internal/cache"
	"modelcache/internal/config"
	"modelcache/internal/engine"
	"modelcache/internal/httpapi"
	"modelcache/internal/registry"
	"modelcache/internal/session"
)

// echoEngine resolves the model reference and answers with the model size.
type echoEngine struct{ refs engine.Resolver }

func (e echoEngine) Available() error { return nil }

func (e echoEngine) Generate(ctx context.Context, opts engine.Options, prompt string, fn engine.StreamFunc) error {
	b, err := e.refs.Resolve(opts.ModelReference)
	if err != nil {
		return err
	}
	fn(fmt.Sprintf("%d bytes", b.Size()), false)
	fn(" for "+prompt, false)
	fn("", true)
	return nil
}

// process is one daemon lifetime over a data directory.
type process struct {
	srv     *httptest.Server
	session *session.Session
	store   *cache.Store
}

// wait blocks until background stores and probes are done.
func (p *process) wait() {
	p.session.Wait()
	p.store.Wait()
}

func startProcess(t *testing.T, dataDir, downloadURL string) *process {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.DownloadURL = downloadURL
	log := zerolog.Nop()

	set, err := registry.Build(cfg, registry.Options{Logger: log})
	if err != nil {
		t.Fatalf("build backends: %v", err)
	}
	store := cache.NewStore(cache.StoreConfig{Adapters: set.Adapters, Logger: log})
	refs := &session.References{}
	dl := acquire.NewDownloader(acquire.DownloaderConfig{Logger: log, RetryInterval: time.Millisecond})
	s := session.New(session.Config{
		References: refs,
		Store:      store,
		Restorer:   cache.NewRestorer(cache.RestorerConfig{Adapters: set.Adapters, Logger: log}),
		Engine:     echoEngine{refs: refs},
		Download:   acquire.NewDownloadController(dl, downloadURL, acquire.Options{ChunkSize: 1024, MaxParallel: 4}),
		Persister:  set.Persister,
		Logger:     log,
	})
	srv := httptest.NewServer(httpapi.NewMux(httpapi.NewSessionService(s, nil)))
	p := &process{srv: srv, session: s, store: store}
	t.Cleanup(func() {
		srv.Close()
		p.wait()
		_ = set.Close()
	})
	return p
}

func writeModel(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	data := bytes.Repeat([]byte{0xAB}, size)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write model %s: %v", p, err)
	}
	return p
}

func httpDo(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}
