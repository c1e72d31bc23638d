package domain

import (
	"context"
	"time"
)

// TokenKind discriminates who a token acts for.
type TokenKind string

const (
	// UserToken is issued on behalf of an account through a client.
	UserToken TokenKind = "user_token"
	// ClientToken is issued to a client acting for itself.
	ClientToken TokenKind = "client_token"
)

// Token is the authoritative record behind every signed bearer token.
// The signed payload carries this record's ID as the jti claim so
// verification can look it up in O(1) and honor revocation before the
// signature itself expires.
type Token struct {
	ID        string    `bson:"_id" json:"id"`
	Kind      TokenKind `bson:"kind" json:"kind"`
	ClientID  string    `bson:"client_id" json:"client_id"`
	AccountID string    `bson:"account_id,omitempty" json:"account_id,omitempty"`

	// Scope is the effective scope, fixed at issuance as the union of
	// client and account scope. It is never widened after creation.
	Scope []string `bson:"scope,omitempty" json:"scope,omitempty"`

	// ExpiresAt is zero for tokens without an expiration.
	ExpiresAt time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`

	// Origin binds the token to the web origin recorded at issuance.
	Origin string `bson:"origin,omitempty" json:"origin,omitempty"`

	Enabled   bool   `bson:"enabled" json:"enabled"`
	RefreshID string `bson:"refresh_id,omitempty" json:"refresh_id,omitempty"`

	UsageCount int64     `bson:"usage_count" json:"usage_count"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	LastUsedAt time.Time `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
}

// IsExpired reports whether the token's expiration has passed at t.
func (t *Token) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_$GOPACKAGE/mock_$GOFILE -package=mock_$GOPACKAGE

// TokenRepository persists token records. Implementations must be safe
// for concurrent use; synchronization is the store's responsibility.
type TokenRepository interface {
	StoreToken(ctx context.Context, token *Token) error
	GetTokenByID(ctx context.Context, id string) (*Token, error)
	// DisableToken soft-invalidates a single token. Disabling an
	// already-disabled token is a no-op.
	DisableToken(ctx context.Context, id string) error
	// DisableAccountTokens soft-invalidates every token issued for the
	// account (logout everywhere).
	DisableAccountTokens(ctx context.Context, accountID string) error
	// TouchToken bumps usage_count and last_used_at.
	TouchToken(ctx context.Context, id string) error
}
