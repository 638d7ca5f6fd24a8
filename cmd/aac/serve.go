package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			built, logger, err := buildFromEnv(false)
			if err != nil {
				return err
			}
			cfg := built.Config
			logger.Info("capabilities resolved",
				zap.String("classifier", built.Modes.Classifier),
				zap.String("generator", built.Modes.Generator),
				zap.String("extractor", built.Modes.Extractor),
				zap.String("speech", built.Modes.Speech),
				zap.Strings("detail", built.Modes.Detail),
			)

			httpServer := &http.Server{
				Addr:              cfg.BindAddr,
				Handler:           built.API.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			built.Sessions.StartJanitor(ctx, 5*time.Second)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", zap.String("addr", cfg.BindAddr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					_ = built.Close(context.Background())
					return err
				}
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown failed", zap.Error(err))
				_ = httpServer.Close()
			}
			if err := built.Close(shutdownCtx); err != nil {
				logger.Warn("cleanup failed", zap.Error(err))
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}
