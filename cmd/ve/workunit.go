package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/netguy204/ve/internal/apiclient"
	"github.com/netguy204/ve/internal/daemon"
	"github.com/netguy204/ve/internal/types"
)

func init() {
	wu := &cobra.Command{
		Use:     "workunit",
		Aliases: []string{"wu"},
		GroupID: "workunit",
		Short:   "Inspect and mutate work units against the running daemon",
	}

	wu.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List work units, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			var units []types.WorkUnit
			path := "/work-units"
			if status != "" {
				path += "?status=" + status
			}
			if err := daemonClient().Do(cmd.Context(), "GET", path, nil, &units); err != nil {
				return err
			}
			return printJSON(units)
		},
	})
	wu.Commands()[0].Flags().String("status", "", "filter by status (READY, RUNNING, BLOCKED, NEEDS_ATTENTION, DONE)")

	wu.AddCommand(&cobra.Command{
		Use:   "get <chunk>",
		Short: "Show one work unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var unit types.WorkUnit
			if err := daemonClient().Do(cmd.Context(), "GET", "/work-units/"+args[0], nil, &unit); err != nil {
				return err
			}
			return printJSON(unit)
		},
	})

	wu.AddCommand(&cobra.Command{
		Use:   "history <chunk>",
		Short: "Show a work unit's status transition history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []types.StatusLogEntry
			if err := daemonClient().Do(cmd.Context(), "GET", "/work-units/"+args[0]+"/history", nil, &entries); err != nil {
				return err
			}
			return printJSON(entries)
		},
	})

	createCmd := &cobra.Command{
		Use:   "create <chunk>",
		Short: "Create a work unit for a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, _ := cmd.Flags().GetInt("priority")
			blockedBy, _ := cmd.Flags().GetStringSlice("blocked-by")
			body := map[string]interface{}{
				"chunk":      args[0],
				"phase":      string(types.PhaseGoal),
				"blocked_by": blockedBy,
				"priority":   priority,
			}
			var unit types.WorkUnit
			if err := daemonClient().Do(cmd.Context(), "POST", "/work-units", body, &unit); err != nil {
				return err
			}
			return printJSON(unit)
		},
	}
	createCmd.Flags().Int("priority", 0, "scheduling priority (higher dispatches first)")
	createCmd.Flags().StringSlice("blocked-by", nil, "chunks this one is blocked on")
	wu.AddCommand(createCmd)

	wu.AddCommand(&cobra.Command{
		Use:   "delete <chunk>",
		Short: "Delete a work unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemonClient().Do(cmd.Context(), "DELETE", "/work-units/"+args[0], nil, nil)
		},
	})

	answerCmd := &cobra.Command{
		Use:   "answer <chunk> <text>",
		Short: "Submit an operator answer to a NEEDS_ATTENTION work unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"answer": args[1]}
			var unit types.WorkUnit
			return daemonClient().Do(cmd.Context(), "POST", "/work-units/"+args[0]+"/answer", body, &unit)
		},
	}
	wu.AddCommand(answerCmd)

	resolveCmd := &cobra.Command{
		Use:   "resolve <chunk> <other-chunk> <parallelize|serialize>",
		Short: "Resolve an overlap conflict blocking a work unit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"other_chunk": args[1], "verdict": args[2]}
			var unit types.WorkUnit
			return daemonClient().Do(cmd.Context(), "POST", "/work-units/"+args[0]+"/resolve", body, &unit)
		},
	}
	wu.AddCommand(resolveCmd)

	rootCmd.AddCommand(wu)
}

func daemonClient() *apiclient.Client {
	root := requireProjectRoot()
	paths := daemon.NewPaths(root)
	return apiclient.New(paths.Socket)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
