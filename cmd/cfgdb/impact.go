package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfgdb/internal/graph"
)

var impactCmd = &cobra.Command{
	Use:   "impact <class-id>...",
	Short: "Compute the removal impact of one or more classes",
	Long: `Runs a what-if impact analysis for removing the named classes and
prints the result (removed, orphaned, affected, and the impact graph)
as JSON on stdout.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) {
	logger := newLogger()
	db := mustOpenExisting(logger)
	defer db.Close()

	result, err := graph.NewEngine(db, logger).ImpactAnalysis(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing impact: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		os.Exit(1)
	}
}
