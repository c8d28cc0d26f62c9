package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/boxskill/internal/adapters/http/api"
	"github.com/okian/boxskill/internal/adapters/http/swagger"
	service "github.com/okian/boxskill/internal/app"
	"github.com/okian/boxskill/internal/config"
	"github.com/okian/boxskill/pkg/logger"
)

// HTTP server timeout constants. Writes wait for the Box and NLU calls of a
// whole invocation.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the skill over HTTP (/init, /run, /healthz)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			configPath, _ := cmd.Flags().GetString("config")
			cfg, log, err := setup(ctx, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().String("addr", "", "listen address, overrides the addr config key")
	return cmd
}

func newMux(ctx context.Context, cfg *config.Config, log logger.Logger) *http.ServeMux {
	svc := service.New(cfg, service.WithLogger(log.Named("skill")))

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, log.Named("api")).Register(ctx, mux)
	return mux
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}
