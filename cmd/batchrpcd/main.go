package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"batchrpc/internal/config"
	"batchrpc/server"
)

func main() {
	var (
		cfgPath  string
		host     string
		port     int
		logLevel string
		enableWS bool
	)

	root := &cobra.Command{
		Use:          "batchrpcd",
		Short:        "Reference batch-RPC server exposing a demo manifest",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("ws") {
				cfg.EnableWS = enableWS
			}
			return run(cfg)
		},
	}

	root.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file (.json or .toml)")
	root.Flags().StringVar(&host, "host", config.DefaultHost, "listen host")
	root.Flags().IntVar(&port, "port", config.DefaultPort, "listen port")
	root.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	root.Flags().BoolVar(&enableWS, "ws", false, "also serve the websocket batch endpoint")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := setupLogger(cfg.LogLevel)
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("starting batchrpcd")

	srv, err := server.New(demoManifest(), server.Options{
		Addr:        cfg.Addr(),
		APIPrefix:   cfg.APIPrefix,
		MaxBodySize: cfg.MaxBodySize,
		EnableWS:    cfg.EnableWS,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create server")
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
		return err
	}
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
