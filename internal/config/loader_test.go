package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ndata_dir: /tmp/mc\nchunk_size_bytes: 1024\nbackends: [key-value-cache, response-cache]\nredis_url: redis://localhost:6379/0\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DataDir != "/tmp/mc" || cfg.ChunkSizeBytes != 1024 || cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Backends, []string{"key-value-cache", "response-cache"}) {
		t.Fatalf("backends = %v", cfg.Backends)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","download_url":"http://x/m.bin","max_parallel_requests":4,"temperature":0.5,"top_k":8}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.DownloadURL != "http://x/m.bin" || cfg.MaxParallelRequests != 4 || cfg.Temperature != 0.5 || cfg.TopK != 8 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nerror_ttl_ms=500\nprompt_permissions=true\ncors_origins=[\"http://localhost:3000\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ErrorTTLMS != 500 || !cfg.PromptPermissions || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestMergeKeepsExplicitValues(t *testing.T) {
	cfg := Config{Addr: ":1", TopK: 3}.Merge(Default())
	if cfg.Addr != ":1" || cfg.TopK != 3 {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
	if cfg.ChunkSizeBytes != 5*1024*1024 || cfg.MaxParallelRequests != 10 || cfg.ErrorTTLMS != 3000 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxOutputTokens != 1000 || cfg.Temperature != 0.8 || len(cfg.Backends) != 4 {
		t.Fatalf("generation defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MODELCACHE_ADDR":             ":5555",
		"MODELCACHE_BACKENDS":         "file-system-cache, key-value-cache",
		"MODELCACHE_CHUNK_SIZE_BYTES": "2048",
		"MODELCACHE_ERROR_TTL_MS":     "100",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != ":5555" || cfg.ChunkSizeBytes != 2048 || cfg.ErrorTTLMS != 100 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Backends, []string{"file-system-cache", "key-value-cache"}) {
		t.Fatalf("backends = %v", cfg.Backends)
	}

	bad := Default()
	if err := bad.ApplyEnv(func(k string) string {
		if k == "MODELCACHE_MAX_PARALLEL_REQUESTS" {
			return "many"
		}
		return ""
	}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Backends = []string{"key-value-cache", "floppy"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b,c ,")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", got)
	}
	if SplitCSV("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
