package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/blocksim/internal/config"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
	logger     *slog.Logger

	// cfg holds the settings loaded from --config; flags override it.
	cfg = config.Empty()
)

var rootCmd = &cobra.Command{
	Use:   "blocksim",
	Short: "Per-block texture similarity maps for grayscale images",
	Long: `blocksim quantizes an image to a ten-level palette, describes every
block by a histogram of neighboring rank pairs, and scores how much of the
image looks like each block. The result is rendered as a colored overlay.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)

		if configPath == "" {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		slog.Debug("Loaded config", "path", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir, "Base directory for stored runs")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", config.DefaultStore, "Run store backend (fs, sqlite)")
}
