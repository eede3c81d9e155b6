package main

import (
	"fmt"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/report"
	"github.com/smallstep/agentctl/pkg/resource"
	"github.com/smallstep/agentctl/pkg/types"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get KIND IDENTITY...",
	Short: "Show the current state of one resource",
	Long: `Get fetches a resource and prints it the way apply reports it, without
changing anything.

Identity arguments by kind:
  collection  COLLECTION_SLUG
  instance    COLLECTION_SLUG INSTANCE_ID
  workload    COLLECTION_SLUG WORKLOAD_SLUG

Examples:
  agentctl get workload hotdog-production nginx -o yaml`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringP("output", "o", "json", "Result format (json, yaml)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	kind, err := types.ParseKind(args[0])
	if err != nil {
		return err
	}
	res, err := resource.ForIdentity(kind, args[1:]...)
	if err != nil {
		return err
	}
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

	ctx := cmdContext(cmd)
	snap, err := reconciler.Fetch(ctx, client, res)
	if err != nil {
		return fmt.Errorf("failed to fetch %s %s: %w", kind, res.Identity(), err)
	}

	var info *authority.AgentInfo
	if snap.Present {
		if found, err := authority.LookupAgentInfo(ctx, client); err == nil {
			info = &found
		}
	}

	out := report.NewWriter(cmd.OutOrStdout(), format)
	defer out.Close()
	return out.Write(map[string]any{kind.ResultKey(): report.Snapshot(res, snap, info)})
}
