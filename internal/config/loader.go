package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"modelcache/internal/backend"
)

// DefaultDownloadURL is the model fetched by the download action.
const DefaultDownloadURL = "https://storage.googleapis.com/jmstore/kaggleweb/grader/g-2b-it-gpu-int4.bin"

// AllBackends lists the backend names accepted in Config.Backends.
var AllBackends = []string{backend.NameKeyValue, backend.NameFileSystem, backend.NameResponse, backend.NameFileHandle}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Default values in Merge.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir   string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	DownloadURL         string `json:"download_url" yaml:"download_url" toml:"download_url"`
	ChunkSizeBytes      int64  `json:"chunk_size_bytes" yaml:"chunk_size_bytes" toml:"chunk_size_bytes"`
	MaxParallelRequests int    `json:"max_parallel_requests" yaml:"max_parallel_requests" toml:"max_parallel_requests"`
	ErrorTTLMS          int    `json:"error_ttl_ms" yaml:"error_ttl_ms" toml:"error_ttl_ms"`

	Backends []string `json:"backends" yaml:"backends" toml:"backends"`
	// RedisURL moves the response cache from the data directory to Redis.
	RedisURL string `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	// PromptPermissions asks on the terminal before re-opening a saved file handle.
	PromptPermissions bool `json:"prompt_permissions" yaml:"prompt_permissions" toml:"prompt_permissions"`

	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens" toml:"max_output_tokens"`
	TopK            int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	Temperature     float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	LlamaThreads    int     `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LlamaCtx        int     `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                ":8080",
		DataDir:             "~/.cache/modelcache",
		LogLevel:            "info",
		LogFormat:           "auto",
		DownloadURL:         DefaultDownloadURL,
		ChunkSizeBytes:      5 * 1024 * 1024,
		MaxParallelRequests: 10,
		ErrorTTLMS:          3000,
		Backends:            append([]string(nil), AllBackends...),
		MaxOutputTokens:     1000,
		TopK:                40,
		Temperature:         0.8,
		LlamaCtx:            2048,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge fills every unspecified field of c from d.
func (c Config) Merge(d Config) Config {
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.DownloadURL == "" {
		c.DownloadURL = d.DownloadURL
	}
	if c.ChunkSizeBytes <= 0 {
		c.ChunkSizeBytes = d.ChunkSizeBytes
	}
	if c.MaxParallelRequests <= 0 {
		c.MaxParallelRequests = d.MaxParallelRequests
	}
	if c.ErrorTTLMS <= 0 {
		c.ErrorTTLMS = d.ErrorTTLMS
	}
	if len(c.Backends) == 0 {
		c.Backends = d.Backends
	}
	if c.RedisURL == "" {
		c.RedisURL = d.RedisURL
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = d.CORSOrigins
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.LlamaThreads <= 0 {
		c.LlamaThreads = d.LlamaThreads
	}
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = d.LlamaCtx
	}
	c.PromptPermissions = c.PromptPermissions || d.PromptPermissions
	return c
}

// ApplyEnv overrides fields from MODELCACHE_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := map[string]*string{
		"MODELCACHE_ADDR":         &c.Addr,
		"MODELCACHE_DATA_DIR":     &c.DataDir,
		"MODELCACHE_LOG_LEVEL":    &c.LogLevel,
		"MODELCACHE_LOG_FORMAT":   &c.LogFormat,
		"MODELCACHE_DOWNLOAD_URL": &c.DownloadURL,
		"MODELCACHE_REDIS_URL":    &c.RedisURL,
	}
	for k, p := range str {
		if v := getenv(k); v != "" {
			*p = v
		}
	}
	ints := map[string]*int{
		"MODELCACHE_MAX_PARALLEL_REQUESTS": &c.MaxParallelRequests,
		"MODELCACHE_ERROR_TTL_MS":          &c.ErrorTTLMS,
		"MODELCACHE_LLAMA_THREADS":         &c.LlamaThreads,
	}
	for k, p := range ints {
		v := getenv(k)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		*p = n
	}
	if v := getenv("MODELCACHE_CHUNK_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MODELCACHE_CHUNK_SIZE_BYTES: %w", err)
		}
		c.ChunkSizeBytes = n
	}
	if v := getenv("MODELCACHE_BACKENDS"); v != "" {
		c.Backends = SplitCSV(v)
	}
	return nil
}

// Validate rejects unknown backend names.
func (c Config) Validate() error {
	for _, b := range c.Backends {
		known := false
		for _, a := range AllBackends {
			if b == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown backend %q (want one of %s)", b, strings.Join(AllBackends, ", "))
		}
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
