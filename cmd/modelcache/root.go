package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"modelcache/internal/config"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	logFormat  string
	backends   string
	redisURL   string

	cfg config.Config
	log zerolog.Logger
}

func buildRootCmd(getenv func(string) string) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "modelcache",
		Short:         "Acquire, cache and restore a model file, and generate text with it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .json or .toml)")
	f.StringVar(&opts.dataDir, "data-dir", "", "Directory holding the cache backends")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: auto|console|json")
	f.StringVar(&opts.backends, "backends", "", "Comma-separated backends to enable")
	f.StringVar(&opts.redisURL, "redis-url", "", "Keep the response cache in Redis instead of the data directory")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(opts, getenv)
		if err != nil {
			return err
		}
		opts.cfg = cfg
		opts.log = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		return nil
	}

	root.AddCommand(
		newServeCmd(opts),
		newLoadCmd(opts),
		newDownloadCmd(opts),
		newRestoreCmd(opts),
		newGenerateCmd(opts),
	)
	return root
}

// resolveConfig layers defaults, the config file, the environment and flags,
// later layers winning.
func resolveConfig(opts *globalOptions, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	cfg = cfg.Merge(config.Default())
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if opts.backends != "" {
		cfg.Backends = config.SplitCSV(opts.backends)
	}
	if opts.redisURL != "" {
		cfg.RedisURL = opts.redisURL
	}
	return cfg, cfg.Validate()
}

// newLogger writes human-readable logs to terminals and JSON elsewhere.
func newLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	console := format == "console"
	if format == "auto" || format == "" {
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			console = true
		}
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
