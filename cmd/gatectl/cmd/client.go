package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/internal/expiration"
	"go.pilab.hu/gatekeeper/mongodb"
)

var clientCmd = &cobra.Command{
	Use:     "client",
	Short:   "Manage API clients",
	Aliases: []string{"clients"},
}

var clientCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new client",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		scope, _ := cmd.Flags().GetStringSlice("scope")
		expPhrase, _ := cmd.Flags().GetString("expiration")
		origin, _ := cmd.Flags().GetString("origin")

		if name == "" {
			return errors.New("client name is required via --name")
		}
		if expPhrase != "" {
			if _, err := expiration.ParsePhrase(expPhrase); err != nil {
				return fmt.Errorf("invalid expiration phrase: %w", err)
			}
		}

		secret, err := generateSecret()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		client := &domain.Client{
			ID:         uuid.NewString(),
			Name:       name,
			Secret:     secret,
			Scope:      scope,
			Expiration: expPhrase,
			Origin:     origin,
			Enabled:    true,
			CreatedAt:  time.Now(),
		}
		if err := mongodb.NewClientRepository(db).CreateClient(ctx, client); err != nil {
			return err
		}

		// The secret is only shown once, at creation.
		return printYAML(map[string]any{
			"client_id":     client.ID,
			"client_secret": secret,
			"name":          name,
			"scope":         strings.Join(scope, " "),
		})
	},
}

var clientEnableCmd = &cobra.Command{
	Use:   "enable <client-id>",
	Short: "Enable a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setClientEnabled(cmd, args[0], true)
	},
}

var clientDisableCmd = &cobra.Command{
	Use:   "disable <client-id>",
	Short: "Disable a client, refusing all of its grants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setClientEnabled(cmd, args[0], false)
	},
}

var clientScopeCmd = &cobra.Command{
	Use:   "set-scope <client-id>",
	Short: "Replace a client's scope list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetStringSlice("scope")

		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		return mongodb.NewClientRepository(db).UpdateClientScope(ctx, args[0], scope)
	},
}

var clientShowCmd = &cobra.Command{
	Use:   "show <client-id>",
	Short: "Show a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mc, db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mc.Disconnect(ctx)

		client, err := mongodb.NewClientRepository(db).GetClientByID(ctx, args[0])
		if err != nil {
			return err
		}
		client.Secret = "(redacted)"
		return printYAML(client)
	},
}

func setClientEnabled(cmd *cobra.Command, id string, enabled bool) error {
	ctx := cmd.Context()
	mc, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer mc.Disconnect(ctx)

	return mongodb.NewClientRepository(db).SetClientEnabled(ctx, id, enabled)
}

func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func init() {
	clientCreateCmd.Flags().String("name", "", "human-readable client name")
	clientCreateCmd.Flags().StringSlice("scope", nil, "scope granted to the client")
	clientCreateCmd.Flags().String("expiration", "", `token lifetime phrase, e.g. "10 minutes"`)
	clientCreateCmd.Flags().String("origin", "", "bind issued tokens to this origin")
	clientScopeCmd.Flags().StringSlice("scope", nil, "replacement scope list")

	clientCmd.AddCommand(clientCreateCmd)
	clientCmd.AddCommand(clientEnableCmd)
	clientCmd.AddCommand(clientDisableCmd)
	clientCmd.AddCommand(clientScopeCmd)
	clientCmd.AddCommand(clientShowCmd)
}
