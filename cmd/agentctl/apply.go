package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/smallstep/agentctl/pkg/manifest"
	"github.com/smallstep/agentctl/pkg/report"
	"github.com/smallstep/agentctl/pkg/types"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile the resources declared in a manifest",
	Long: `Apply brings every resource in a manifest to its declared state.

Documents are reconciled in file order. One result document is written to
stdout per resource; the run stops at the first failure.

Examples:
  # Reconcile a collection and its workloads
  agentctl apply -f production.yaml

  # Show what would change without changing anything
  agentctl apply -f production.yaml --check --diff`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the resources declared in a manifest",
	Long: `Delete ensures every resource in a manifest is absent, whatever state
the manifest declares. Documents are processed in reverse order so
workloads and instances go before their collection.

Examples:
  agentctl delete -f production.yaml`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Manifest to apply, - for stdin (required)")
	applyCmd.Flags().Bool("check", false, "Report what would change without changing it")
	applyCmd.Flags().Bool("diff", false, "Print attribute differences to stderr")
	applyCmd.Flags().StringP("output", "o", "json", "Result format (json, yaml)")
	_ = applyCmd.MarkFlagRequired("file")

	deleteCmd.Flags().StringP("file", "f", "", "Manifest listing the resources to remove, - for stdin (required)")
	deleteCmd.Flags().Bool("check", false, "Report what would be removed without removing it")
	deleteCmd.Flags().StringP("output", "o", "json", "Result format (json, yaml)")
	_ = deleteCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	entries, err := manifest.Load(filename)
	if err != nil {
		return err
	}
	return reconcileEntries(cmd, entries)
}

func runDelete(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	entries, err := manifest.Load(filename)
	if err != nil {
		return err
	}
	return reconcileEntries(cmd, absentInReverse(entries))
}

// absentInReverse forces every entry to the absent state, children first
func absentInReverse(entries []manifest.Entry) []manifest.Entry {
	out := slices.Clone(entries)
	slices.Reverse(out)
	for i := range out {
		out[i].State = types.StateAbsent
	}
	return out
}

func reconcileEntries(cmd *cobra.Command, entries []manifest.Entry) error {
	outputFlag, _ := cmd.Flags().GetString("output")
	format, err := report.ParseFormat(outputFlag)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	store := openJournal()
	if store != nil {
		defer store.Close()
	}
	defer writeMetrics()

	out := report.NewWriter(cmd.OutOrStdout(), format)
	defer out.Close()

	r := newRunner(client, store, out)
	r.checkMode, _ = cmd.Flags().GetBool("check")
	if showDiff, _ := cmd.Flags().GetBool("diff"); showDiff {
		r.diffOut = cmd.ErrOrStderr()
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return r.run(ctx, entries)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
