package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfgdb/internal/config"
	"cfgdb/internal/logging"
	"cfgdb/internal/storage"
)

const version = "0.2.0"

var (
	databaseFlag string
	logFormat    string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "cfgdb",
	Short: "cfgdb - class hierarchy database",
	Long: `cfgdb stores a forest of single-inheritance class definitions in SQLite
and answers structural and what-if questions over it: hierarchy walks,
removal impact analysis, archive-level dependency graphs, and batch trim
reports.`,
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate("cfgdb version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&databaseFlag, "database", "",
		"Path to the class database (default from .cfgdb/config.json)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "human",
		"Log format (json, human)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
}

// newLogger creates a logger from the persistent logging flags
func newLogger() *logging.Logger {
	format := logging.HumanFormat
	if logFormat == "json" {
		format = logging.JSONFormat
	}
	level := logging.InfoLevel
	switch logLevel {
	case "debug":
		level = logging.DebugLevel
	case "warn":
		level = logging.WarnLevel
	case "error":
		level = logging.ErrorLevel
	}
	return logging.NewLogger(logging.Config{Format: format, Level: level})
}

// databasePath resolves the database location from the --database flag,
// falling back to the config file in the working directory
func databasePath(logger *logging.Logger) string {
	if databaseFlag != "" {
		return databaseFlag
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultConfig().DatabasePath
	}
	cfg, err := config.LoadConfig(wd)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	return cfg.DatabasePath
}

// mustOpenExisting opens an existing database or exits.
// Read-only commands refuse to create an empty store.
func mustOpenExisting(logger *logging.Logger) *storage.DB {
	db, err := storage.OpenExisting(databasePath(logger), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return db
}

// mustOpen opens the database, creating it if necessary, or exits
func mustOpen(logger *logging.Logger) *storage.DB {
	db, err := storage.Open(databasePath(logger), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return db
}
