package main

import (
	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func (a *app) memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage stokvel members and the rotation",
	}
	cmd.AddCommand(
		a.memberAddCmd(),
		a.memberListCmd(),
		a.memberStatusCmd(),
		a.memberBackfillCmd(),
		a.memberBalanceCmd(),
	)
	return cmd
}

func (a *app) memberAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <stokvel-id> <user-id>",
		Short: "Add a member at the end of the rotation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			status, _ := cmd.Flags().GetString("status")
			joinCycle, _ := cmd.Flags().GetInt("join-cycle")

			resp, err := a.stokvels().AddMember(cmd.Context(), connect.NewRequest(&api.AddMemberRequest{
				StokvelID:   args[0],
				UserID:      args[1],
				DisplayName: name,
				Status:      status,
				JoinCycle:   joinCycle,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("status", "", "initial status: active, pending or inactive (default active, or pending when a joining fee is due)")
	cmd.Flags().Int("join-cycle", 0, "cycle in progress when the member joins")
	return cmd
}

func (a *app) memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <stokvel-id>",
		Short: "List members in rotation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().ListMembers(cmd.Context(), connect.NewRequest(&api.ListMembersRequest{StokvelID: args[0]}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) memberStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <stokvel-id> <member-id> <active|inactive|pending>",
		Short: "Change a member's status; the rotation position is kept",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().SetMemberStatus(cmd.Context(), connect.NewRequest(&api.SetMemberStatusRequest{
				StokvelID: args[0],
				MemberID:  args[1],
				Status:    args[2],
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) memberBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill <stokvel-id> <member-id> <cycle>",
		Short: "Make a mid-cycle joiner eligible in an earlier cycle",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycle, err := parseCycle(args[2])
			if err != nil {
				return err
			}
			resp, err := a.stokvels().BackfillMember(cmd.Context(), connect.NewRequest(&api.BackfillMemberRequest{
				StokvelID: args[0],
				MemberID:  args[1],
				Cycle:     cycle,
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}

func (a *app) memberBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <stokvel-id> <member-id>",
		Short: "Show a member's verified contributions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stokvels().GetMemberBalance(cmd.Context(), connect.NewRequest(&api.GetMemberBalanceRequest{
				StokvelID: args[0],
				MemberID:  args[1],
			}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}
