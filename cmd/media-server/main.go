package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"contentflow/internal/logger"
	"contentflow/internal/wire"
)

func main() {
	app, cleanup, err := wire.InitializeMediaServer()
	if err != nil {
		logger.App().WithError(err).Fatal("failed to initialize media server")
	}
	defer cleanup()

	cfg := app.Config
	srv := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.MediaPort),
		Handler:     app.Server,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		logger.App().WithField("addr", srv.Addr).Info("media server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.App().WithError(err).Fatal("media server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.App().Info("shutting down media server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.App().WithError(err).Warn("media server shutdown incomplete")
	}
}
