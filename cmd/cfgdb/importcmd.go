package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfgdb/internal/storage"
)

var (
	importInput string
	importClear bool
)

// importFile is the JSON shape produced by ingestion tooling
type importFile struct {
	Classes          []*storage.ClassRecord      `json:"classes"`
	FileIndexMapping []*storage.FileIndexMapping `json:"fileIndexMapping,omitempty"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import class records and file index mappings",
	Long: `Loads class records (and optionally the file-index catalog) from a
JSON file into the database in a single transaction. The database is
created if it does not exist.`,
	Run: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importInput, "input", "", "JSON file with classes to import (required)")
	importCmd.Flags().BoolVar(&importClear, "clear", false, "Clear existing data before importing")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	logger := newLogger()

	data, err := os.ReadFile(importInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	var payload importFile
	if err := json.Unmarshal(data, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing input: %v\n", err)
		os.Exit(1)
	}

	db := mustOpen(logger)
	defer db.Close()

	classes := storage.NewClassRepository(db)
	files := storage.NewFileIndexRepository(db)

	if importClear {
		if err := classes.ClearAll(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing classes: %v\n", err)
			os.Exit(1)
		}
		if err := files.ClearAll(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing file index mappings: %v\n", err)
			os.Exit(1)
		}
	}

	if err := classes.BulkImport(payload.Classes); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing classes: %v\n", err)
		os.Exit(1)
	}
	if err := files.ImportMappings(payload.FileIndexMapping); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing file index mappings: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d classes and %d file index mappings into %s\n",
		len(payload.Classes), len(payload.FileIndexMapping), db.Path())
}
