package cmd

import (
	"github.com/spf13/cobra"

	"go.pilab.hu/gatekeeper/mongodb"
)

var tokenCmd = &cobra.Command{
	Use:     "token",
	Short:   "Manage issued tokens",
	Aliases: []string{"tokens"},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show <token-id>",
	Short: "Show a token record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		token, err := mongodb.NewTokenRepository(db).GetTokenByID(ctx, args[0])
		if err != nil {
			return err
		}
		return printYAML(token)
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <token-id>",
	Short: "Disable a token record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		return mongodb.NewTokenRepository(db).DisableToken(ctx, args[0])
	},
}

func init() {
	tokenCmd.AddCommand(tokenShowCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
}
