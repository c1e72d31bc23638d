package cmd

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/internal/auth"
	"go.pilab.hu/gatekeeper/mongodb"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Short:   "Manage end-user accounts",
	Aliases: []string{"accounts"},
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		scope, _ := cmd.Flags().GetStringSlice("scope")

		if username == "" {
			return errors.New("username is required via --username")
		}
		if password == "" {
			var err error
			password, err = promptPassword()
			if err != nil {
				return err
			}
		}

		hash, err := auth.NewBcryptPasswordHasher(0).Hash(password)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		account := &domain.Account{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			Password:  hash,
			Scope:     scope,
			Enabled:   true,
			CreatedAt: time.Now(),
		}
		if err := mongodb.NewAccountRepository(db).CreateAccount(ctx, account); err != nil {
			return err
		}

		return printYAML(map[string]any{
			"account_id": account.ID,
			"username":   username,
		})
	},
}

var accountEnableCmd = &cobra.Command{
	Use:   "enable <account-id>",
	Short: "Enable an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAccountEnabled(cmd, args[0], true)
	},
}

var accountDisableCmd = &cobra.Command{
	Use:   "disable <account-id>",
	Short: "Disable an account and all tokens issued to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setAccountEnabled(cmd, args[0], false); err != nil {
			return err
		}

		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		return mongodb.NewTokenRepository(db).DisableAccountTokens(ctx, args[0])
	},
}

func setAccountEnabled(cmd *cobra.Command, id string, enabled bool) error {
	ctx := cmd.Context()
	mc, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer mc.Disconnect(ctx)

	return mongodb.NewAccountRepository(db).SetAccountEnabled(ctx, id, enabled)
}

func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if string(raw) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(raw), nil
}

func init() {
	accountCreateCmd.Flags().String("username", "", "login name")
	accountCreateCmd.Flags().String("email", "", "contact email")
	accountCreateCmd.Flags().String("password", "", "password (prompted when omitted)")
	accountCreateCmd.Flags().StringSlice("scope", nil, "scope granted to the account")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountEnableCmd)
	accountCmd.AddCommand(accountDisableCmd)
}
