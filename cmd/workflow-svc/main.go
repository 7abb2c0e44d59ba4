package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"contentflow/internal/grpcapi"
	"contentflow/internal/logger"
	"contentflow/internal/wire"
)

func main() {
	app, cleanup, err := wire.InitializeApplication()
	if err != nil {
		logger.App().WithError(err).Fatal("failed to initialize workflow service")
	}
	defer cleanup()

	log := logger.App()
	cfg := app.Config

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.WithError(err).Fatalf("failed to listen on gRPC port %s", cfg.Server.GRPCPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", httpServer.Addr).Info("REST API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.WithField("addr", lis.Addr().String()).Info("gRPC sync service listening")
		return app.GRPC.Server.Serve(lis)
	})

	g.Go(func() error {
		app.Service.StartJanitor(gctx, cfg.Sync.JanitorInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down workflow service")

		app.GRPC.Health.SetServingStatus(grpcapi.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		// push sessions end when the hub stops, which lets both servers drain
		app.Hub.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		app.GRPC.Server.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("workflow service stopped with error")
		return
	}
	log.Info("workflow service stopped")
}
