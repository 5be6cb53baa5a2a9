package main

import (
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func (a *app) contributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contribution",
		Aliases: []string{"contrib"},
		Short:   "Record and verify contributions",
	}
	cmd.AddCommand(
		a.contributionRecordCmd(),
		a.contributionVerifyCmd(),
		a.contributionRejectCmd(),
		a.contributionPendingCmd(),
	)
	return cmd
}

func (a *app) contributionRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "record <stokvel-id> <member-id> <amount>",
		Short:   "Record a contribution",
		Example: "  stokvelctl contribution record s1 m1 3500 --period 2025-06 --proof eft-4411",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount("amount", args[2])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			cycle, _ := f.GetInt("cycle")
			period, _ := f.GetString("period")
			proof, _ := f.GetString("proof")
			recordedAt, _ := f.GetString("recorded-at")

			req := &api.RecordContributionRequest{
				StokvelID:   args[0],
				MemberID:    args[1],
				CycleNumber: cycle,
				Period:      period,
				Amount:      amount,
				ProofRef:    proof,
			}
			if recordedAt != "" {
				t, err := time.Parse(time.RFC3339, recordedAt)
				if err != nil {
					return err
				}
				req.RecordedAt = &t
			}

			resp, err := a.stokvels().RecordContribution(cmd.Context(), connect.NewRequest(req))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	f := cmd.Flags()
	f.Int("cycle", 1, "rotation cycle the contribution belongs to")
	f.String("period", "", "contribution month as YYYY-MM (default: current month)")
	f.String("proof", "", "proof of payment reference")
	f.String("recorded-at", "", "payment time as RFC 3339, admins only (default: now)")
	return cmd
}

func (a *app) contributionVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <stokvel-id> <contribution-id>",
		Short: "Verify a pending contribution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().VerifyContribution(cmd.Context(), connect.NewRequest(&api.VerifyContributionRequest{
				StokvelID:      args[0],
				ContributionID: args[1],
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) contributionRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <stokvel-id> <contribution-id>",
		Short: "Reject a pending contribution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			resp, err := a.stokvels().RejectContribution(cmd.Context(), connect.NewRequest(&api.RejectContributionRequest{
				StokvelID:      args[0],
				ContributionID: args[1],
				Reason:         reason,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	cmd.Flags().String("reason", "", "why the contribution was rejected")
	return cmd
}

func (a *app) contributionPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending <stokvel-id>",
		Short: "List contributions awaiting verification, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().ListPendingContributions(cmd.Context(), connect.NewRequest(&api.ListPendingContributionsRequest{
				StokvelID: args[0],
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}
