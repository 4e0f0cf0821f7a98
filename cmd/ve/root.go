package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netguy204/ve/internal/config"
)

var (
	verbose    bool
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "ve",
	Short: "Engineering workflow substrate: artifacts, causal DAG, orchestrator",
	Long: `ve turns a repository of markdown artifacts into a causally ordered DAG
and orchestrates parallel coding agents through lifecycle state machines,
in isolated git worktrees.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveProjectRoot()
		if err != nil {
			// Commands that don't need a project root (e.g. a future `ve
			// init`) tolerate this failing; commands that need one call
			// requireProjectRoot, which prints an error and exits 1.
			projectDir = ""
		} else {
			projectDir = root
		}
		return config.Initialize(projectDir)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "no effect: no command reads this flag")

	rootCmd.AddGroup(
		&cobra.Group{ID: "artifact", Title: "Artifact commands:"},
		&cobra.Group{ID: "daemon", Title: "Daemon commands:"},
		&cobra.Group{ID: "workunit", Title: "Work unit commands:"},
	)
}

// resolveProjectRoot walks upward from the current directory for
// docs/trunk/GOAL.md.
func resolveProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.FindProjectRoot(cwd)
}

func requireProjectRoot() string {
	if projectDir == "" {
		fmt.Fprintln(os.Stderr, "error: not inside a ve project (no docs/trunk/GOAL.md found above here)")
		os.Exit(1)
	}
	return projectDir
}
