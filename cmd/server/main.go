package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pixelsync/internal/app"
	"pixelsync/internal/config"
	"pixelsync/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:           "pixelsync",
		Short:         "Collaborative pixel-art session server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLog := log.New("info")

			cfg, source, err := config.Load(bootLog, configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// Flags beat the file and the environment.
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("db") {
				cfg.DatabasePath = dbPath
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", source).Str("addr", cfg.Addr).Msg("starting pixelsync server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the session journal database")
	return cmd
}
