package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfgdb/internal/export"
	"cfgdb/internal/graph"
)

var (
	graphRoot    string
	graphDepth   int
	graphExclude []string
	graphPbo     bool
	graphOut     string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export a hierarchy or archive dependency graph",
	Long: `Builds a graph of the class forest (or of archive-level
dependencies with --pbo) and writes it as JSON. A .zst output suffix
enables zstd compression.`,
	Run: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphRoot, "root", "", "Root class id (empty walks every root)")
	graphCmd.Flags().IntVar(&graphDepth, "depth", 10, "Maximum traversal depth (0-50)")
	graphCmd.Flags().StringSliceVar(&graphExclude, "exclude", nil,
		"Exclude classes whose id or source path contains any of these substrings")
	graphCmd.Flags().BoolVar(&graphPbo, "pbo", false, "Aggregate to archive-level dependencies")
	graphCmd.Flags().StringVar(&graphOut, "out", "", "Output file, .json or .json.zst (required)")
	_ = graphCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) {
	logger := newLogger()
	db := mustOpenExisting(logger)
	defer db.Close()

	engine := graph.NewEngine(db, logger)

	var data *graph.Data
	var err error
	if graphPbo {
		data, err = engine.BuildPBODependencyGraph()
	} else {
		data, err = engine.BuildClassHierarchyGraph(graphRoot, graphDepth, graphExclude)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building graph: %v\n", err)
		os.Exit(1)
	}

	if err := export.WriteGraphJSON(graphOut, data); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing graph: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d nodes, %d edges to %s\n", len(data.Nodes), len(data.Edges), graphOut)
}
