package cli

import (
	"context"
	"errors"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/adapter/api"
	"github.com/spf13/cobra"
)

var (
	serveAddr           string
	serveRefreshOnStart bool
	serveShutdown       time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return errNoApp
		}
		ctx := cmd.Context()

		addr := serveAddr
		if addr == "" {
			addr = app.HTTPAddr
		}
		cfg := api.DefaultServerConfig()
		if addr != "" {
			cfg.Addr = addr
		}
		handler := api.NewTrackingHandler(api.TrackingHandlerConfig{
			Refresh:        app.Refresh,
			Board:          app.Board,
			Summary:        app.Summary,
			Members:        app.Members,
			RefreshTimeout: app.RefreshTimeout,
			Logger:         logger,
		})
		server := api.NewServer(cfg, handler, app.Health, app.Metrics, logger)

		if serveRefreshOnStart {
			if _, err := app.Refresh.Handle(ctx); err != nil {
				logger.WarnContext(ctx, "initial refresh failed", "error", err)
			}
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdown)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveRefreshOnStart, "refresh-on-start", true, "publish a snapshot before accepting requests")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	rootCmd.AddCommand(serveCmd)
}
