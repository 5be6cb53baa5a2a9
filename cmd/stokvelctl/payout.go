package main

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func (a *app) payoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Evaluate triggers and process payouts",
	}
	cmd.AddCommand(a.payoutProcessCmd(), a.payoutNextCmd(), a.payoutTriggerCmd(), a.payoutListCmd())
	return cmd
}

func (a *app) payoutProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <stokvel-id>",
		Short: "Pay out the current trigger firing",
		Example: `  stokvelctl payout process s1 --cycle 1 --key 2025-06-run
  stokvelctl payout process s2 --cycle 1 --signal death-cert-88 --emergency-member m4 --emergency-amount 5000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			cycle, _ := f.GetInt("cycle")
			period, _ := f.GetString("period")
			signal, _ := f.GetString("signal")
			key, _ := f.GetString("key")
			emergencyMember, _ := f.GetString("emergency-member")

			nominal, err := decimalFlag(cmd, "nominal")
			if err != nil {
				return err
			}
			emergencyAmount, err := decimalFlag(cmd, "emergency-amount")
			if err != nil {
				return err
			}

			req := &api.ProcessPayoutRequest{
				StokvelID:    args[0],
				Cycle:        cycle,
				Period:       period,
				SignalID:     signal,
				RequestKey:   key,
				NominalValue: nominal,
			}
			switch {
			case emergencyMember != "" && emergencyAmount.IsPositive():
				req.Emergency = &api.EmergencyWithdrawal{MemberID: emergencyMember, Amount: emergencyAmount}
			case emergencyMember != "" || !emergencyAmount.IsZero():
				return errors.New("--emergency-member and a positive --emergency-amount must be given together")
			}

			resp, err := a.stokvels().ProcessPayout(cmd.Context(), connect.NewRequest(req))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	f := cmd.Flags()
	f.Int("cycle", 1, "rotation cycle")
	f.String("period", "", "contribution month for completeness triggers (YYYY-MM)")
	f.String("signal", "", "admin signal id for manual triggers")
	f.String("key", "", "idempotency key; a repeated key is rejected")
	f.String("nominal", "", "nominal value received, when it differs from cash")
	f.String("emergency-member", "", "member receiving an emergency withdrawal")
	f.String("emergency-amount", "", "emergency withdrawal amount")
	return cmd
}

func (a *app) payoutNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next <stokvel-id>",
		Short: "Show the member next in the rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycle, _ := cmd.Flags().GetInt("cycle")
			resp, err := a.stokvels().GetNextEligible(cmd.Context(), connect.NewRequest(&api.GetNextEligibleRequest{
				StokvelID: args[0],
				Cycle:     cycle,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	cmd.Flags().Int("cycle", 1, "rotation cycle")
	return cmd
}

func (a *app) payoutTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger <stokvel-id>",
		Short: "Evaluate whether a payout is due without paying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetString("period")
			signal, _ := cmd.Flags().GetString("signal")
			resp, err := a.stokvels().EvaluateTrigger(cmd.Context(), connect.NewRequest(&api.EvaluateTriggerRequest{
				StokvelID: args[0],
				Period:    period,
				SignalID:  signal,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	cmd.Flags().String("period", "", "contribution month for completeness triggers (YYYY-MM)")
	cmd.Flags().String("signal", "", "admin signal id for manual triggers")
	return cmd
}

func (a *app) payoutListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <stokvel-id>",
		Short: "List payouts; --cycle 0 lists every cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycle, _ := cmd.Flags().GetInt("cycle")
			resp, err := a.stokvels().ListPayouts(cmd.Context(), connect.NewRequest(&api.ListPayoutsRequest{
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
