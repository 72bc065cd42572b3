package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfgdb/internal/storage"
)

var childrenCmd = &cobra.Command{
	Use:   "children <parent-id>",
	Short: "List the direct children of a class",
	Args:  cobra.ExactArgs(1),
	Run:   runChildren,
}

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List classes with no parent",
	Run:   runRoots,
}

func init() {
	rootCmd.AddCommand(childrenCmd)
	rootCmd.AddCommand(rootsCmd)
}

func runChildren(cmd *cobra.Command, args []string) {
	logger := newLogger()
	db := mustOpenExisting(logger)
	defer db.Close()

	children, err := storage.NewClassRepository(db).GetChildren(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing children: %v\n", err)
		os.Exit(1)
	}
	printClassList(children)
}

func runRoots(cmd *cobra.Command, args []string) {
	logger := newLogger()
	db := mustOpenExisting(logger)
	defer db.Close()

	roots, err := storage.NewClassRepository(db).GetRootClasses()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing roots: %v\n", err)
		os.Exit(1)
	}
	printClassList(roots)
}

func printClassList(records []*storage.ClassRecord) {
	if len(records) == 0 {
		fmt.Println("No classes found.")
		return
	}
	for _, record := range records {
		fmt.Println(record.ID)
	}
	fmt.Printf("\n%d classes\n", len(records))
}
