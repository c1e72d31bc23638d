package grant

import (
	"context"
	stderrors "errors"
	"time"

	"go.pilab.hu/gatekeeper/codec"
	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/errors"
)

// strippedOptions are the caller-supplied issuance overrides a refresh
// must never honor: honoring them would let a refresh widen privileges
// granted at original issuance.
var strippedOptions = []string{"algorithm", "jwtid", "expiresIn"}

// RefreshGranter re-issues a token from a previously issued signed
// token string. The new token is a new record of the same kind for the
// same account/client pair with the same scope and a fresh expiration;
// the original record is not mutated.
type RefreshGranter struct {
	tokens   domain.TokenRepository
	accounts domain.AccountRepository
	codec    *codec.Codec
	issuer   *TokenIssuer

	defaultTTL time.Duration
}

// NewRefreshGranter creates the refresh granter.
func NewRefreshGranter(tokens domain.TokenRepository, accounts domain.AccountRepository, signer *codec.Codec, issuer *TokenIssuer, defaultTTL time.Duration) *RefreshGranter {
	return &RefreshGranter{
		tokens:     tokens,
		accounts:   accounts,
		codec:      signer,
		issuer:     issuer,
		defaultTTL: defaultTTL,
	}
}

func (g *RefreshGranter) Name() string {
	return TypeRefresh
}

func (g *RefreshGranter) Schema(client *domain.Client) Schema {
	required := []string{"refresh_token"}
	if client.Secret != "" {
		required = append(required, "client_secret")
	}
	return Schema{Required: required}
}

func (g *RefreshGranter) CreateToken(ctx context.Context, req *Request) (*Issued, error) {
	claims, err := g.codec.Verify(req.RefreshToken, codec.VerifyOptions{Origin: req.Origin})
	if err != nil {
		if stderrors.Is(err, codec.ErrTokenExpired) {
			return nil, errors.Forbidden(errors.CodeTokenExpired, "token has expired")
		}
		return nil, errors.Forbidden(errors.CodeInvalidToken, "token is invalid")
	}

	previous, err := g.tokens.GetTokenByID(ctx, claims.ID)
	if err != nil {
		return nil, errors.Forbidden(errors.CodeUnknownToken, "token record not found")
	}
	if !previous.Enabled {
		return nil, errors.Forbidden(errors.CodeTokenDisabled, "token is disabled")
	}
	if previous.ClientID != req.Client.ID {
		return nil, errors.Forbidden(errors.CodeInvalidToken,
			"token was issued to a different client")
	}

	spec := IssueSpec{
		ClientID: req.Client.ID,
		// The effective scope was fixed at original issuance and is
		// carried over verbatim; re-issuance never widens it.
		Scope:  previous.Scope,
		Origin: req.Origin,
	}

	switch previous.Kind {
	case domain.UserToken:
		account, err := g.accounts.GetAccountByID(ctx, previous.AccountID)
		if err != nil {
			return nil, errors.BadRequest(errors.CodeInvalidUsername, "account does not exist")
		}
		if !account.Enabled {
			return nil, errors.BadRequest(errors.CodeAccountDisabled, "account is disabled")
		}
		if !req.Client.AllowsAccount(account.ID) {
			return nil, errors.Forbidden(errors.CodeAccountForbidden,
				"account is not allowed on this client")
		}
		spec.Kind = domain.UserToken
		spec.AccountID = account.ID
		spec.WithRefresh = true

	case domain.ClientToken:
		spec.Kind = domain.ClientToken

	default:
		return nil, errors.BadRequest(errors.CodeInvalidRequest,
			"this token cannot be re-issued")
	}

	ttl, err := clientTTL(req.Client, g.defaultTTL)
	if err != nil {
		return nil, err
	}
	spec.ExpiresIn = ttl

	// Whatever issuance overrides the caller supplied, the privileged
	// ones are discarded before they can influence the new token.
	opts := restrictOptions(req.Options)
	if aud, ok := opts["audience"]; ok {
		spec.Audience = aud
	}

	return g.issuer.Issue(ctx, spec)
}

// restrictOptions returns a copy of opts with the privileged issuance
// overrides removed.
func restrictOptions(opts map[string]string) map[string]string {
	if opts == nil {
		return nil
	}
	restricted := make(map[string]string, len(opts))
	for k, v := range opts {
		restricted[k] = v
	}
	for _, k := range strippedOptions {
		delete(restricted, k)
	}
	return restricted
}
