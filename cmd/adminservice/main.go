package main

import (
	"admin-service/internal/app"
	"admin-service/internal/config"
	"admin-service/pkg/logger"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

const (
	envFilePath      = ".env"
	signalBufferSize = 1
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(cfg.App.LogLevel, cfg.App.IsProduction())
	ctx := context.Background()

	service, err := app.NewService(ctx, cfg, lg)
	if err != nil {
		lg.Error(ctx, "failed to initialize service", "error", err)
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- service.Start()
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)

	select {
	case <-quit:
		lg.Info(ctx, "shutting down server")
	case err := <-serverErr:
		if err != nil {
			lg.Error(ctx, "server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := service.Shutdown(shutdownCtx); err != nil {
		lg.Error(ctx, "server forced to shutdown", "error", err)
		os.Exit(1)
	}

	lg.Info(ctx, "server exited gracefully")
}
