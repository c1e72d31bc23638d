package domain

import (
	"context"
	"time"
)

// Client represents a calling application registered by an administrator.
type Client struct {
	ID     string `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Secret string `bson:"secret,omitempty" json:"-"`

	// Scope the client itself is granted. User tokens issued through
	// this client carry the union of this set and the account's set.
	Scope []string `bson:"scope,omitempty" json:"scope,omitempty"`

	// Allow and Deny restrict which accounts may authenticate through
	// this client. An empty Allow list means all accounts are allowed
	// unless denied.
	Allow []string `bson:"allow,omitempty" json:"allow,omitempty"`
	Deny  []string `bson:"deny,omitempty" json:"deny,omitempty"`

	// Expiration is a relative phrase like "10 minutes". Empty means
	// tokens issued through this client do not expire.
	Expiration string `bson:"expiration,omitempty" json:"expiration,omitempty"`

	Enabled bool `bson:"enabled" json:"enabled"`

	// Origin, when set, is recorded on issued tokens and enforced at
	// verification time.
	Origin string `bson:"origin,omitempty" json:"origin,omitempty"`

	PasswordResetURL string `bson:"password_reset_url,omitempty" json:"password_reset_url,omitempty"`
	ActivationURL    string `bson:"activation_url,omitempty" json:"activation_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AllowsAccount applies the allow/deny lists to an account id. Deny
// wins over allow.
func (c *Client) AllowsAccount(accountID string) bool {
	for _, id := range c.Deny {
		if id == accountID {
			return false
		}
	}
	if len(c.Allow) == 0 {
		return true
	}
	for _, id := range c.Allow {
		if id == accountID {
			return true
		}
	}
	return false
}

// ClientRepository persists client registrations. Clients are never
// hard-deleted while referenced tokens exist; SetClientEnabled is the
// soft-invalidation path.
type ClientRepository interface {
	CreateClient(ctx context.Context, client *Client) error
	GetClientByID(ctx context.Context, id string) (*Client, error)
	UpdateClient(ctx context.Context, client *Client) error
	SetClientEnabled(ctx context.Context, id string, enabled bool) error
	UpdateClientScope(ctx context.Context, id string, scope []string) error
}
