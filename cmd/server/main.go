package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirecall-server/internal/app"
	"github.com/vovakirdan/wirecall-server/internal/config"
	"github.com/vovakirdan/wirecall-server/internal/log"
)

var (
	configPath string
	addr       string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "wirecall-server",
	Short:         "wirecall signaling server: presence, call invitations and answers over WebSocket",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides config")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "wirecall-server: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	bootLogger := log.New("info", "console")

	cfg, path, err := config.Load(bootLogger, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(config.Config{
		Addr: addr,
		Log:  config.LogConfig{Level: logLevel},
	})

	logger := log.New(cfg.Log.Level, cfg.Log.Format)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting wirecall server")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
