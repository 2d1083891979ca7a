package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "chatroom",
		Short: "WebSocket chat room server",
		Long: "A chat room server that fans chat messages out to every connected\n" +
			"participant, enforces unique usernames, and understands a small\n" +
			"dot-command language (.help lists the commands).",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen address (overrides SERVER_PORT)")
	return cmd
}

func run(port string) error {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	coordinator := chat.NewCoordinator(logger)
	hub := server.NewHub(coordinator, logger)
	go hub.Run()

	handler := server.NewHandler(hub, cfg, logger)
	httpServer := server.CreateServer(cfg.Port, handler.Routes())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, cfg, logger)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger); err != nil {
		logger.Warn("HTTP shutdown did not complete cleanly", zap.Error(err))
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Warn("hub shutdown did not complete cleanly", zap.Error(err))
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)
	return config.Build()
}
