package grant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/gatekeeper/cache"
	"go.pilab.hu/gatekeeper/codec"
	"go.pilab.hu/gatekeeper/domain"
)

// IssueSpec describes one token to mint.
type IssueSpec struct {
	Kind      domain.TokenKind
	ClientID  string
	AccountID string
	// Scope is fixed here, at issuance. Nothing widens it later.
	Scope []string
	// ExpiresIn of zero means the token does not expire.
	ExpiresIn time.Duration
	Origin    string
	// Audience overrides the aud claim; it defaults to the client id.
	Audience string
	// WithRefresh also mints the refresh counterpart.
	WithRefresh bool
}

// TokenIssuer creates, signs, and persists token records. It is shared
// by every granter; issuance is never idempotent, each call creates a
// new record.
type TokenIssuer struct {
	tokens domain.TokenRepository
	cache  cache.TokenCache
	codec  *codec.Codec
}

// NewTokenIssuer creates a TokenIssuer. cache may be nil.
func NewTokenIssuer(tokens domain.TokenRepository, tokenCache cache.TokenCache, signer *codec.Codec) *TokenIssuer {
	return &TokenIssuer{
		tokens: tokens,
		cache:  tokenCache,
		codec:  signer,
	}
}

// Issue mints a token per spec: a new record with a fresh id, the
// signed access string, and the refresh string when requested.
func (i *TokenIssuer) Issue(ctx context.Context, spec IssueSpec) (*Issued, error) {
	now := time.Now()
	token := &domain.Token{
		ID:        uuid.NewString(),
		Kind:      spec.Kind,
		ClientID:  spec.ClientID,
		AccountID: spec.AccountID,
		Scope:     spec.Scope,
		Origin:    spec.Origin,
		Enabled:   true,
		CreatedAt: now,
	}
	if spec.ExpiresIn > 0 {
		token.ExpiresAt = now.Add(spec.ExpiresIn)
	}

	subject := spec.AccountID
	if subject == "" {
		subject = spec.ClientID
	}
	audience := spec.Audience
	if audience == "" {
		audience = spec.ClientID
	}

	accessToken, err := i.codec.Sign(codec.SignOptions{
		TokenID:   token.ID,
		Subject:   subject,
		Audience:  audience,
		ExpiresAt: token.ExpiresAt,
		Kind:      spec.Kind,
		Use:       codec.UseAccess,
		Scope:     spec.Scope,
		Origin:    spec.Origin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	var refreshToken string
	if spec.WithRefresh {
		token.RefreshID = uuid.NewString()
		// The refresh string carries the same jti so re-issuance
		// resolves the same authoritative record. It never expires on
		// its own; revocation is the record's enabled flag.
		refreshToken, err = i.codec.Sign(codec.SignOptions{
			TokenID:  token.ID,
			Subject:  subject,
			Audience: audience,
			Kind:     spec.Kind,
			Use:      codec.UseRefresh,
			Origin:   spec.Origin,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to sign refresh token: %w", err)
		}
	}

	if err := i.tokens.StoreToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	if i.cache != nil {
		if err := i.cache.Set(ctx, token); err != nil {
			log.Warn().Err(err).Str("token_id", token.ID).Msg("failed to cache token")
		}
	}

	return &Issued{
		Token:        token,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Revoke disables a token record and drops it from the cache so the
// next verification fails even before the signed string expires.
func (i *TokenIssuer) Revoke(ctx context.Context, tokenID string) error {
	if i.cache != nil {
		if err := i.cache.Delete(ctx, tokenID); err != nil {
			log.Warn().Err(err).Str("token_id", tokenID).Msg("failed to delete token from cache")
		}
	}
	return i.tokens.DisableToken(ctx, tokenID)
}

// RevokeAccount disables every token issued for an account. The cache
// is cleared wholesale; entries are keyed by token id and cannot be
// enumerated per account.
func (i *TokenIssuer) RevokeAccount(ctx context.Context, accountID string) error {
	if i.cache != nil {
		if err := i.cache.Clear(ctx); err != nil {
			log.Warn().Err(err).Str("account_id", accountID).Msg("failed to clear token cache")
		}
	}
	return i.tokens.DisableAccountTokens(ctx, accountID)
}
