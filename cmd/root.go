package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/nwsl/config"
)

var (
	configPath string
	logLevel   string
	logDir     string

	logCleanup func() error
)

// Execute builds the command tree and runs it.
func Execute() error {
	root := &cobra.Command{
		Use:           "nwsl",
		Short:         "Manage a basic newsletter over IMAP and SMTP",
		Long:          "nwsl derives its subscriber list from subscribe/unsubscribe requests in an inbox and sends a newsletter to it through an SMTP relay.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				path, err := config.DefaultPath()
				if err != nil {
					return err
				}
				configPath = path
			}

			logger, cleanup, err := setupLogger(logLevel, logDir)
			if err != nil {
				return err
			}
			logCleanup = cleanup
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCleanup != nil {
				_ = logCleanup()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to the config file (default ~/.nwsl/config.json)")
	flags.StringVar(&logLevel, "log-level", "warn", "Logging level: debug, info, warn, error")
	flags.StringVar(&logDir, "log-dir", "", "Directory for log files (in addition to stderr)")

	root.AddCommand(configureCmd(), subscribersCmd(), sendCmd())
	return root.Execute()
}

func setupLogger(logLevel, logDir string) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	switch logLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return nil, nil, fmt.Errorf("invalid --log-level: %s", logLevel)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(logDir, fmt.Sprintf("nwsl-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler), cleanup, nil
}
