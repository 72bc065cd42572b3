package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cfgdb/internal/storage"
)

var (
	hierarchyDepth int
	hierarchyAll   bool
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy [root-id]",
	Short: "Walk a class hierarchy to a bounded depth",
	Long: `Prints the inheritance tree below a root class, one row per node
ordered by depth. With --all the whole forest is walked from every root.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHierarchy,
}

func init() {
	hierarchyCmd.Flags().IntVar(&hierarchyDepth, "depth", 10, "Maximum traversal depth (0-50)")
	hierarchyCmd.Flags().BoolVar(&hierarchyAll, "all", false, "Walk every root class")
	rootCmd.AddCommand(hierarchyCmd)
}

func runHierarchy(cmd *cobra.Command, args []string) {
	logger := newLogger()

	if !hierarchyAll && len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: a root-id argument or --all is required")
		os.Exit(1)
	}

	db := mustOpenExisting(logger)
	defer db.Close()
	classes := storage.NewClassRepository(db)

	var nodes []*storage.HierarchyNode
	var err error
	if hierarchyAll {
		nodes, err = classes.GetFullHierarchy(hierarchyDepth)
	} else {
		nodes, err = classes.GetHierarchy(args[0], hierarchyDepth)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error walking hierarchy: %v\n", err)
		os.Exit(1)
	}

	if len(nodes) == 0 {
		fmt.Println("No classes found.")
		return
	}

	for _, node := range nodes {
		parent := ""
		if node.ParentID != nil {
			parent = *node.ParentID
		}
		fmt.Printf("%s%s", strings.Repeat("  ", node.Depth), node.ID)
		if parent != "" {
			fmt.Printf("  (parent: %s)", parent)
		}
		fmt.Println()
	}
	fmt.Printf("\n%d classes\n", len(nodes))
}
