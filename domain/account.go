package domain

import (
	"context"
	"time"
)

// Verification tracks the account's email-verification state.
type Verification struct {
	Required   bool      `bson:"required" json:"required"`
	Verified   bool      `bson:"verified" json:"verified"`
	VerifiedAt time.Time `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	VerifiedIP string    `bson:"verified_ip,omitempty" json:"verified_ip,omitempty"`
}

// PasswordReset holds the one-shot reset state for an account.
type PasswordReset struct {
	TokenID     string    `bson:"token_id,omitempty" json:"-"`
	RequestedAt time.Time `bson:"requested_at,omitempty" json:"requested_at,omitempty"`
}

// Account is an end-user identity consumed by the password granter.
type Account struct {
	ID       string `bson:"_id" json:"id"`
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`

	// Password is the bcrypt hash of the credential, never the
	// plaintext.
	Password string `bson:"password" json:"-"`

	Scope   []string `bson:"scope,omitempty" json:"scope,omitempty"`
	Enabled bool     `bson:"enabled" json:"enabled"`

	Verification  Verification   `bson:"verification" json:"verification"`
	PasswordReset *PasswordReset `bson:"password_reset,omitempty" json:"-"`

	// DeletedAt marks a soft-deleted account. Soft-deleted accounts
	// fail authentication the same way missing ones do.
	DeletedAt time.Time `bson:"deleted_at,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDeleted reports whether the account has been soft-deleted.
func (a *Account) IsDeleted() bool {
	return !a.DeletedAt.IsZero()
}

// AccountRepository persists end-user accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
	SetAccountEnabled(ctx context.Context, id string, enabled bool) error
}
