package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfgdb/internal/graph"
	"cfgdb/internal/trim"
)

var (
	trimInput     string
	trimOutput    string
	trimWatch     bool
	trimBatchSize int
)

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Analyze the impact of a class removal list",
	Long: `Reads a line-oriented removal specification (literal ids, regex
patterns, + protected markers), computes orphaned and affected classes
plus archives left empty, and writes a Markdown impact report.`,
	Run: runTrim,
}

func init() {
	trimCmd.Flags().StringVar(&trimInput, "input", "", "Removal spec file (required)")
	trimCmd.Flags().StringVar(&trimOutput, "output", "trim-report.md", "Report output path")
	trimCmd.Flags().BoolVar(&trimWatch, "watch", false, "Re-run on changes to the input file")
	trimCmd.Flags().IntVar(&trimBatchSize, "batch-size", 0, "Impact ids per batch (default 1000)")
	_ = trimCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(trimCmd)
}

func runTrim(cmd *cobra.Command, args []string) {
	logger := newLogger()

	db := mustOpenExisting(logger)
	defer db.Close()

	engine := graph.NewEngine(db, logger)
	workflow := trim.NewWorkflow(engine, trim.NewSQLiteArchiveAnalyzer(db), logger)
	workflow.BatchSize = trimBatchSize

	if trimWatch {
		if err := workflow.Watch(trimInput, trimOutput); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	result, err := workflow.Run(trimInput, trimOutput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result == nil {
		fmt.Println("Removal spec contains no classes to remove.")
		return
	}
	fmt.Printf("Report written to %s (%d removed, %d orphaned, %d affected)\n",
		trimOutput, len(result.Removed), len(result.Orphaned), len(result.Affected))
}
