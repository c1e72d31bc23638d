package grant

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/internal/expiration"
	"go.pilab.hu/gatekeeper/scope"
)

// PasswordHasher verifies account credentials against their stored
// hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// PasswordGranter exchanges an account's username/password for a user
// token issued through the authenticated client.
type PasswordGranter struct {
	accounts domain.AccountRepository
	issuer   *TokenIssuer
	hasher   PasswordHasher

	// defaultTTL applies when the client has no expiration policy of
	// its own.
	defaultTTL time.Duration
}

// NewPasswordGranter creates the password granter.
func NewPasswordGranter(accounts domain.AccountRepository, issuer *TokenIssuer, hasher PasswordHasher, defaultTTL time.Duration) *PasswordGranter {
	return &PasswordGranter{
		accounts:   accounts,
		issuer:     issuer,
		hasher:     hasher,
		defaultTTL: defaultTTL,
	}
}

func (g *PasswordGranter) Name() string {
	return TypePassword
}

// Schema requires the credential pair, plus the client secret for
// confidential clients.
func (g *PasswordGranter) Schema(client *domain.Client) Schema {
	required := []string{"username", "password"}
	if client.Secret != "" {
		required = append(required, "client_secret")
	}
	return Schema{Required: required}
}

// CreateToken resolves and authenticates the account, then issues a
// user token. Existence checks precede credential checks so error
// precedence is deterministic.
func (g *PasswordGranter) CreateToken(ctx context.Context, req *Request) (*Issued, error) {
	account, err := g.resolveAccount(ctx, req)
	if err != nil {
		return nil, err
	}

	if account.IsDeleted() {
		return nil, errors.BadRequest(errors.CodeInvalidUsername, "account does not exist")
	}
	if !account.Enabled {
		return nil, errors.BadRequest(errors.CodeAccountDisabled, "account is disabled")
	}

	// A pre-authenticated request (explicit account id) skips the
	// credential check; it already happened in an earlier layer of the
	// same request lifecycle.
	if req.AccountID == "" {
		if err := g.hasher.Verify(account.Password, req.Password); err != nil {
			return nil, errors.BadRequest(errors.CodeInvalidPassword, "incorrect password")
		}
	}

	if !req.Client.AllowsAccount(account.ID) {
		return nil, errors.Forbidden(errors.CodeAccountForbidden,
			"account is not allowed on this client")
	}

	ttl, err := clientTTL(req.Client, g.defaultTTL)
	if err != nil {
		return nil, err
	}

	return g.issuer.Issue(ctx, IssueSpec{
		Kind:        domain.UserToken,
		ClientID:    req.Client.ID,
		AccountID:   account.ID,
		Scope:       scope.Union(req.Client.Scope, account.Scope),
		ExpiresIn:   ttl,
		Origin:      req.Origin,
		WithRefresh: true,
	})
}

func (g *PasswordGranter) resolveAccount(ctx context.Context, req *Request) (*domain.Account, error) {
	if req.AccountID != "" {
		account, err := g.accounts.GetAccountByID(ctx, req.AccountID)
		if err != nil {
			return nil, errors.BadRequest(errors.CodeInvalidUsername, "account does not exist")
		}
		return account, nil
	}

	account, err := g.accounts.GetAccountByUsername(ctx, req.Username)
	if err != nil {
		return nil, errors.BadRequest(errors.CodeInvalidUsername, "account does not exist")
	}
	return account, nil
}

// clientTTL computes a token lifetime from the client's relative
// expiration phrase, falling back to the granter default.
func clientTTL(client *domain.Client, defaultTTL time.Duration) (time.Duration, error) {
	if client.Expiration == "" {
		return defaultTTL, nil
	}
	ttl, err := expiration.ParsePhrase(client.Expiration)
	if err != nil {
		// A malformed phrase is an administrator mistake; surface it
		// rather than silently issuing a non-expiring token.
		log.Error().Err(err).Str("client_id", client.ID).Msg("invalid client expiration phrase")
		return 0, errors.Internal("client has an invalid expiration policy")
	}
	return ttl, nil
}
