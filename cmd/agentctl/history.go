package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/smallstep/agentctl/pkg/journal"
	"github.com/smallstep/agentctl/pkg/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent reconciliations",
	Long: `History prints the local run history, newest first.

Examples:
  agentctl history --limit 20
  agentctl history --kind workload`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 50, "Maximum number of entries (0 for all)")
	historyCmd.Flags().String("kind", "", "Only show one kind (collection, instance, workload)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	kindFlag, _ := cmd.Flags().GetString("kind")

	filter := journal.Filter{Limit: limit}
	if kindFlag != "" {
		kind, err := types.ParseKind(kindFlag)
		if err != nil {
			return err
		}
		filter.Kind = kind
	}

	if cfg.Journal.Disabled {
		return errors.New("run history is disabled (journal.disabled is set)")
	}
	store, err := journal.NewBoltStore(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(filter)
	if err != nil {
		return err
	}
	renderHistory(cmd.OutOrStdout(), entries)
	return nil
}

func renderHistory(w io.Writer, entries []*journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"STARTED", "RUN", "KIND", "IDENTITY", "STATE", "ACTION", "CHANGED", "DURATION", "ERROR"})

	for _, e := range entries {
		action := string(e.Action)
		if e.CheckMode && action != "" {
			action += " (check)"
		}
		if action == "" {
			action = "-"
		}
		t.AppendRow(table.Row{
			e.StartedAt.Local().Format(time.DateTime),
			shortID(e.RunID),
			e.Kind,
			e.Identity,
			e.State,
			action,
			e.Changed,
			e.Duration.Round(time.Millisecond),
			truncate(e.Error, 60),
		})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
