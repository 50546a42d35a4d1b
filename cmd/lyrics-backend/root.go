package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-lyrics/internal/app"
	"go-lyrics/internal/config"

	"github.com/spf13/cobra"
)

var (
	// global flags
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lyrics-backend",
	Short: "synchronized lyrics daemon for mpris players",
	Long: `lyrics-backend follows the current playerctl track, fetches its lyrics and
pushes the active line to GUI clients over a unix socket.

when run without a subcommand, it starts the daemon.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config %s: %w", configPath, err)
			}
		} else {
			cfg = config.Load()
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		app.SetupLogging(cfg.Log.Level)
		return nil
	},
	RunE:          runDaemon,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/lyrics/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(parseCmd, codeCmd, searchCmd, downloadCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
