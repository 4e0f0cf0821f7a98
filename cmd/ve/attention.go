package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/netguy204/ve/internal/types"
)

// lipgloss styles for --pretty attention-queue rendering, following the
// teacher's bold-header / muted-label terminal-output idiom.
var (
	attnHeaderStyle = lipgloss.NewStyle().Bold(true)
	attnChunkStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	attnReasonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	attnCountStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func init() {
	pretty := false
	cmd := &cobra.Command{
		Use:     "attention",
		GroupID: "workunit",
		Short:   "List work units awaiting operator attention, most-blocking first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []types.AttentionItem
			if err := daemonClient().Do(cmd.Context(), "GET", "/attention", nil, &items); err != nil {
				return err
			}
			if pretty {
				printAttentionTable(items)
				return nil
			}
			return printJSON(items)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render a styled table instead of JSON")
	rootCmd.AddCommand(cmd)
}

func printAttentionTable(items []types.AttentionItem) {
	if len(items) == 0 {
		fmt.Println("nothing needs attention")
		return
	}
	fmt.Println(attnHeaderStyle.Render(fmt.Sprintf("%-24s %-28s %s", "CHUNK", "REASON", "BLOCKS")))
	for _, item := range items {
		fmt.Printf("%s %s %s\n",
			attnChunkStyle.Render(fmt.Sprintf("%-24s", item.WorkUnit.Chunk)),
			attnReasonStyle.Render(fmt.Sprintf("%-28s", item.WorkUnit.AttentionReason)),
			attnCountStyle.Render(fmt.Sprintf("%d", item.BlockingCount)),
		)
	}
}
