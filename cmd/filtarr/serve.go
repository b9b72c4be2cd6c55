package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vmunix/filtarr/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, closer := newLogger(cfg.Server, os.Stdout)
	defer func() { _ = closer.Close() }()

	if path == "" {
		logger.Info("no config file found, using defaults and environment")
	} else {
		logger.Info("config loaded", "path", path)
	}

	metrics.Register()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}
