package main

import (
	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/config"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint bearer tokens",
	}
	cmd.AddCommand(a.tokenMintCmd())
	return cmd
}

func (a *app) tokenMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint <user-id>",
		Short: "Mint a token for a user",
		Long: `Mint a token for a user.

By default the token is signed locally with the server's secret, read from
--config or JWT_SECRET; use this to bootstrap the first admin. With --remote
the running server issues it, which requires an admin token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleFlag, _ := cmd.Flags().GetString("role")
			remote, _ := cmd.Flags().GetBool("remote")
			configPath, _ := cmd.Flags().GetString("config")

			role, err := auth.ParseRole(roleFlag)
			if err != nil {
				return err
			}

			if remote {
				resp, err := a.auth().IssueToken(cmd.Context(), connect.NewRequest(&api.IssueTokenRequest{
					UserID: args[0],
					Role:   string(role),
				}))
				if err != nil {
					return err
				}
				return a.print(resp.Msg)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			token, err := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.TokenTTL).Generate(args[0], role)
			if err != nil {
				return err
			}
			return a.print(&api.IssueTokenResponse{Token: token})
		},
	}
	cmd.Flags().String("role", string(auth.RoleMember), "admin or member")
	cmd.Flags().Bool("remote", false, "ask the server to issue the token")
	cmd.Flags().String("config", "", "server config file holding auth.secret")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity the server sees for --token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.auth().WhoAmI(cmd.Context(), connect.NewRequest(&api.WhoAmIRequest{}))
			if err != nil {
				return err
			}
			return a.print(resp.Msg)
		},
	}
}
