package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "replaytrader",
		Short:        "Replay historical intraday prices and paper-trade against them",
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server (default)",
		RunE:  runServe,
	}

	importCmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Copy YAML series files into the SQLite series database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().String("db", "", "SQLite database path (defaults to SERIES_DB)")

	healthcheckCmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe /healthz on the local server; exit 0 when healthy",
		RunE:  runHealthcheck,
	}
	healthcheckCmd.Flags().Duration("timeout", 0, "Request timeout (defaults to 2s)")

	rootCmd.AddCommand(serveCmd, importCmd, healthcheckCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the JSON logger at the configured level and installs it
// as the default.
func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
