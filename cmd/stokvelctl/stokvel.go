package main

import (
	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func (a *app) stokvelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stokvel",
		Short: "Create and inspect stokvels",
	}
	cmd.AddCommand(a.stokvelCreateCmd(), a.stokvelGetCmd(), a.stokvelListCmd(), a.stokvelStatusCmd())
	return cmd
}

func (a *app) stokvelCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stokvel",
		Example: `  stokvelctl stokvel create --name "Taxi fund" --type vehicle --contribution 3500 --target 100000
  stokvelctl stokvel create --name "Funeral cover" --type burial --contribution 200 --manual-shape equal_share --allow-emergency`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			name, _ := f.GetString("name")
			typ, _ := f.GetString("type")
			currency, _ := f.GetString("currency")
			shape, _ := f.GetString("manual-shape")
			basis, _ := f.GetString("value-basis")
			graceDays, _ := f.GetInt("grace-days")
			dueDay, _ := f.GetInt("due-day")
			noVerify, _ := f.GetBool("no-verification")
			allowEmergency, _ := f.GetBool("allow-emergency")

			contribution, err := decimalFlag(cmd, "contribution")
			if err != nil {
				return err
			}
			target, err := decimalFlag(cmd, "target")
			if err != nil {
				return err
			}
			penalty, err := decimalFlag(cmd, "penalty-rate")
			if err != nil {
				return err
			}
			joiningFee, err := decimalFlag(cmd, "joining-fee")
			if err != nil {
				return err
			}
			emergencyLimit, err := decimalFlag(cmd, "emergency-limit")
			if err != nil {
				return err
			}
			rollover, err := decimalFlag(cmd, "rollover")
			if err != nil {
				return err
			}

			verify := !noVerify
			resp, err := a.stokvels().CreateStokvel(cmd.Context(), connect.NewRequest(&api.CreateStokvelRequest{
				Stokvel: api.Stokvel{
					Name:               name,
					Type:               typ,
					Currency:           currency,
					ContributionAmount: contribution,
					TargetAmount:       target,
					ManualShape:        shape,
					ValueBasis:         basis,
					Rules: api.RuleSettings{
						LatePaymentPenaltyRate:     penalty,
						GracePeriodDays:            graceDays,
						JoiningFee:                 joiningFee,
						AllowEmergencyWithdrawals:  allowEmergency,
						EmergencyWithdrawalLimit:   emergencyLimit,
						MinimumRolloverBalance:     rollover,
						DueDayOfMonth:              dueDay,
						RequirePaymentVerification: &verify,
					},
				},
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}

	f := cmd.Flags()
	f.String("name", "", "stokvel name")
	f.String("type", "", "vehicle, grocery, burial, investment, education, christmas, home_improvement or farming")
	f.String("currency", "ZAR", "ISO currency code")
	f.String("contribution", "", "monthly contribution amount")
	f.String("target", "", "payout target for threshold types")
	f.String("manual-shape", "", "rotation_single or equal_share (burial and investment only)")
	f.String("value-basis", "", "cash or nominal value received in settlement")
	f.String("penalty-rate", "", "late payment penalty percentage")
	f.Int("grace-days", 0, "days after the due date before a penalty applies")
	f.Int("due-day", 1, "day of the month contributions are due")
	f.String("joining-fee", "", "one-off joining fee")
	f.Bool("no-verification", false, "count contributions without admin verification")
	f.Bool("allow-emergency", false, "allow emergency withdrawals")
	f.String("emergency-limit", "", "maximum single emergency withdrawal")
	f.String("rollover", "", "minimum balance kept in the pool")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("contribution")
	return cmd
}

func (a *app) stokvelGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <stokvel-id>",
		Short: "Show a stokvel and its payout policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().GetStokvel(cmd.Context(), connect.NewRequest(&api.GetStokvelRequest{StokvelID: args[0]}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) stokvelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stokvels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().ListStokvels(cmd.Context(), connect.NewRequest(&api.ListStokvelsRequest{}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) stokvelStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <stokvel-id>",
		Short: "Show balances, active members and pending contributions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().GetStatus(cmd.Context(), connect.NewRequest(&api.GetStatusRequest{StokvelID: args[0]}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}
