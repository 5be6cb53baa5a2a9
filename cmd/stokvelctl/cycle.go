package main

import (
	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func (a *app) cycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Settle rotation cycles and track fairness adjustments",
	}
	cmd.AddCommand(a.cycleSettleCmd(), a.cycleAdjustmentsCmd(), a.cycleMarkSettledCmd())
	return cmd
}

func (a *app) cycleSettleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle <stokvel-id> <cycle>",
		Short: "Compute fairness adjustments for a completed cycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycle, err := parseCycle(args[1])
			if err != nil {
				return err
			}
			resp, err := a.stokvels().SettleCycle(cmd.Context(), connect.NewRequest(&api.SettleCycleRequest{
				StokvelID: args[0],
				Cycle:     cycle,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) cycleAdjustmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjustments <stokvel-id>",
		Short: "List fairness adjustments; --cycle 0 lists every cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycle, _ := cmd.Flags().GetInt("cycle")
			resp, err := a.stokvels().ListAdjustments(cmd.Context(), connect.NewRequest(&api.ListAdjustmentsRequest{
				StokvelID: args[0],
				Cycle:     cycle,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	cmd.Flags().Int("cycle", 0, "rotation cycle")
	return cmd
}

func (a *app) cycleMarkSettledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-settled <stokvel-id> <adjustment-id>",
		Short: "Record that an adjustment has been paid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().MarkAdjustmentSettled(cmd.Context(), connect.NewRequest(&api.MarkAdjustmentSettledRequest{
				StokvelID:    args[0],
				AdjustmentID: args[1],
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}
