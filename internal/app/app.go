// Package app wires configuration, logging and the dataset into a query
// backend shared by the server and dashboard commands.
package app

import (
	"context"
	"fmt"
	"io"

	"foodprices/internal/api"
	"foodprices/internal/config"
	"foodprices/internal/engine"
	"foodprices/internal/logger"
	"foodprices/internal/models"
	"foodprices/internal/sqlengine"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BindFlags registers the flags shared by every command and binds them
// to their viper keys. It returns a pointer to the --config value.
func BindFlags(cmd *cobra.Command, v *viper.Viper) *string {
	configFile := new(string)
	flags := cmd.PersistentFlags()
	flags.StringVar(configFile, "config", "", "Path to a config file (yaml, json or toml)")
	flags.String("data", "", "Path to the zip-compressed (or plain) CSV dataset")
	flags.String("entry", "", "CSV file name inside the zip archive")
	flags.String("encoding", "", "Character encoding of the CSV: latin1, windows-1252, utf-8")
	flags.String("engine", "", "Query engine: columnar or duckdb")
	flags.Int("preview", 0, "Rows shown in the filtered data preview")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this file, rotated by size")

	bind := map[string]string{
		"data.path":          "data",
		"data.entry":         "entry",
		"data.encoding":      "encoding",
		"query.engine":       "engine",
		"query.preview_rows": "preview",
		"log.level":          "log-level",
		"log.file":           "log-file",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return configFile
}

// Setup loads the config and builds the logger.
func Setup(v *viper.Viper, configFile string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// Backend is a loaded query backend plus whatever it must release.
type Backend struct {
	api.Backend
	Report *models.LoadReport
	close  func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open loads the dataset named by cfg and wraps it in the configured engine.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, progress io.Writer) (*Backend, error) {
	store, report, err := engine.LoadColumnar(cfg.Data.Path, engine.LoadOptions{
		Entry:    cfg.Data.Entry,
		Encoding: cfg.Data.Encoding,
		Progress: progress,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Query.Engine {
	case config.EngineDuckDB:
		db, err := sqlengine.Open(ctx, store, log)
		if err != nil {
			return nil, fmt.Errorf("open duckdb engine: %w", err)
		}
		return &Backend{Backend: db, Report: report, close: db.Close}, nil
	default:
		return &Backend{Backend: engine.NewColumnar(store), Report: report}, nil
	}
}
