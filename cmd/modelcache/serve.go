package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modelcache/internal/config"
	"modelcache/internal/httpapi"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr         string
		corsOrigins  string
		maxBody      int64
		inferTimeout int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Example: "  modelcache serve --addr :8080\n" +
			"  modelcache serve --cors-origins http://localhost:5173",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			origins := cfg.CORSOrigins
			if corsOrigins != "" {
				origins = config.SplitCSV(corsOrigins)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.close()

			httpapi.SetLogger(opts.log)
			httpapi.SetBaseContext(ctx)
			httpapi.SetMaxBodyBytes(maxBody)
			httpapi.SetInferTimeoutSeconds(inferTimeout)
			httpapi.SetCORSOptions(len(origins) > 0, origins, nil, nil)

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           httpapi.NewMux(httpapi.NewSessionService(a.session, nil)),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				opts.log.Info().Str("addr", cfg.Addr).Str("data_dir", cfg.DataDir).Msg("modelcache listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			// Graceful shutdown (Ctrl+C / SIGTERM)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.session.CancelDownload()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				opts.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated origins allowed by CORS")
	cmd.Flags().Int64Var(&maxBody, "max-body-bytes", 1<<20, "Maximum JSON request body size")
	cmd.Flags().Int64Var(&inferTimeout, "infer-timeout", 0, "Seconds an /infer request may run (0 disables)")
	return cmd
}
