package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modelcache/internal/acquire"
	"modelcache/internal/backend"
	"modelcache/internal/session"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// reportNotices prints the transient error left by a background step.
func reportNotices(cmd *cobra.Command, s *session.Session) error {
	n := s.Notices().Snapshot()
	if n.Alert != "" {
		return fmt.Errorf("%s", n.Alert)
	}
	if n.Error != "" {
		return fmt.Errorf("%s", n.Error)
	}
	return nil
}

func newLoadCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load [path]",
		Short: "Load a local model file and cache it in every backend",
		Long:  "Load a local model file and cache it in every backend. Without a path the file is asked for on the terminal; an empty answer cancels.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			a, err := newApp(opts, nil)
			if err != nil {
				return err
			}
			var picker acquire.Picker = acquire.LinePicker{In: os.Stdin, Out: cmd.ErrOrStderr()}
			if len(args) == 1 {
				picker = acquire.PathPicker{Path: args[0]}
			}
			ref, err := a.session.LoadLocal(ctx, picker)
			if cerr := a.close(); err == nil && cerr != nil {
				return cerr
			}
			if err != nil {
				return err
			}
			if ref == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "canceled")
				return nil
			}
			if err := reportNotices(cmd, a.session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cached %d bytes\n", a.session.Status().ModelBytes)
			return nil
		},
	}
}

func newDownloadCmd(opts *globalOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the model in parallel chunks and cache it in every backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" {
				opts.cfg.DownloadURL = url
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			errw := cmd.ErrOrStderr()
			a, err := newApp(opts, func(done, total int64) {
				if total > 0 {
					fmt.Fprintf(errw, "\rdownloading %5.1f%%", 100*float64(done)/float64(total))
				}
			})
			if err != nil {
				return err
			}
			ref, err := a.session.Download(ctx)
			fmt.Fprintln(errw)
			if cerr := a.close(); err == nil && cerr != nil {
				return cerr
			}
			if err != nil {
				return err
			}
			if ref == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "download canceled")
				return nil
			}
			if err := reportNotices(cmd, a.session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cached %d bytes\n", a.session.Status().ModelBytes)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Model URL (defaults to the configured download_url)")
	return cmd
}

func newRestoreCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Race every backend for the cached model and report the winner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			a, err := newApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.close()
			name, found := a.session.Probe(ctx)
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "No cached model found.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", backend.DisplayName(name), a.session.Status().ModelBytes)
			return nil
		},
	}
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Restore the cached model and stream a response to the prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			a, err := newApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.close()
			a.session.Probe(ctx)
			out := cmd.OutOrStdout()
			_, err = a.session.Submit(ctx, args[0], func(partial string) {
				fmt.Fprint(out, partial)
			})
			fmt.Fprintln(out)
			return err
		},
	}
}
