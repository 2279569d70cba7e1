// Command webclip captures page regions as .inkclip artifacts, inspects
// and renders them, and serves the capture API over HTTP and MCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/webclip/config"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	logLevel   string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "webclip",
	Short:         "Capture web page regions as .inkclip artifacts",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(logLevel)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", env("WEBCLIP_CONFIG", ""), "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")

	rootCmd.AddCommand(captureCmd, inspectCmd, renderCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "webclip:", err)
		os.Exit(1)
	}
}

// newLogger writes JSON to stderr so stdout stays free for sink output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
