package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/efreitasn/replaytrader/internal/config"
	"github.com/efreitasn/replaytrader/internal/series"
)

// runImport copies each YAML series file into the SQLite database,
// replacing any series already stored under the same key.
func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = cfg.SeriesDB
	}

	db, err := series.OpenSQLite(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, file := range args {
		f, err := series.ReadFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		points, err := f.PricePoints()
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		key := f.Key()
		if err := db.Import(cmd.Context(), key, points); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		logger.Info("series imported",
			slog.String("file", file),
			slog.String("series", key.String()),
			slog.Int("points", len(points)),
		)
	}
	return nil
}
