/*
Package main is the entry point for the lobby server.

It is responsible for loading configuration and game settings, initializing the global logging
system, starting the session loop and the WebSocket hub, serving HTTP, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lobby/internal/app/hub"
	"lobby/internal/app/session"
	"lobby/internal/configs"
	"lobby/internal/handler"
	"lobby/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables and flags
	cfg, err := configs.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logx.InitGlobalLogger(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("settings_file", cfg.SettingsFile).
		Int("max_username_length", cfg.Settings.MaxUsernameLength).
		Int("max_player_per_room", cfg.Settings.MaxPlayerPerRoom).
		Int("start_countdown", cfg.Settings.StartCountdown).
		Float64("frame_per_second", cfg.Settings.FramePerSecond).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the transport and the session loop
	wsHub := hub.New()
	sessionServer := session.NewServer(cfg.Settings, wsHub)
	go sessionServer.Run(ctx)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:     wsHub,
		Session: sessionServer,
		Config:  cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Lobby Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	wsHub.Shutdown()

	select {
	case <-sessionServer.Done():
	case <-shutdownCtx.Done():
		logx.Warn("Session loop did not stop in time.")
	}

	logx.Info("Server gracefully stopped.")
}
