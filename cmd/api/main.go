// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "mandir-fund/internal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and initialize the application
	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("Failed to initialize application")
		_ = application.Shutdown(ctx)
		os.Exit(1)
	}

	// WriteTimeout stays zero so the live stream is not cut off; regular routes are
	// bounded by the router's timeout middleware.
	server := &http.Server{
		Addr:              ":" + application.Config.ServerPort,
		Handler:           application.HTTPHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Live streams never finish on their own.
	server.RegisterOnShutdown(application.LiveService.CloseWatchers)

	// Run server in a goroutine
	go func() {
		application.Logger.Info().Str("port", application.Config.ServerPort).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			application.Logger.Error().Err(err).Msg("HTTP server failed to start")
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	application.Logger.Info().Msg("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), application.Config.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
		os.Exit(1)
	}

	// Perform application-level shutdown (change listener, DB connections)
	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("Application shutdown failed")
		os.Exit(1)
	}

	application.Logger.Info().Msg("Application gracefully stopped.")
}
