// Package middleware provides the echo middleware that authenticates
// bearer tokens and evaluates authorization policies on protected
// routes.
package middleware

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/gatekeeper/cache"
	"go.pilab.hu/gatekeeper/codec"
	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/internal/metrics"
	"go.pilab.hu/gatekeeper/scope"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Bearer authenticates requests that carry a signed bearer token. The
// verified token record, principal, and granted scope are attached to
// the request context; everything downstream reads them from there.
type Bearer struct {
	codec    *codec.Codec
	tokens   domain.TokenRepository
	clients  domain.ClientRepository
	accounts domain.AccountRepository
	cache    cache.TokenCache

	ignoreOrigin bool
}

// NewBearer creates the bearer authenticator. tokenCache may be nil.
func NewBearer(signer *codec.Codec, tokens domain.TokenRepository, clients domain.ClientRepository, accounts domain.AccountRepository, tokenCache cache.TokenCache) *Bearer {
	return &Bearer{
		codec:    signer,
		tokens:   tokens,
		clients:  clients,
		accounts: accounts,
		cache:    tokenCache,
	}
}

// SetOriginBinding toggles origin enforcement. Enabled by default.
func (b *Bearer) SetOriginBinding(enabled bool) {
	b.ignoreOrigin = !enabled
}

// Middleware authenticates the request and, when required scopes are
// declared for the route, checks them against the token's granted
// scope.
func (b *Bearer) Middleware(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			// Fast path: an earlier layer in this request lifecycle
			// already resolved the token.
			ac, ok := domain.AuthContextFrom(ctx)
			if !ok {
				var err error
				ac, err = b.Authenticate(ctx, extractionFrom(c))
				if err != nil {
					return respondError(c, err)
				}
				ctx = domain.WithAuthContext(ctx, ac)
				c.SetRequest(c.Request().WithContext(ctx))
			}

			if err := checkRequiredScope(required, ac.Scope); err != nil {
				metrics.PolicyDenialsTotal.Inc()
				return respondError(c, err)
			}

			return next(c)
		}
	}
}

// Extraction carries the places a request may present its token, in
// priority order: Authorization header, body field, query parameter.
type Extraction struct {
	AuthorizationHeader string
	BodyToken           string
	QueryToken          string
	Origin              string
}

func extractionFrom(c echo.Context) Extraction {
	return Extraction{
		AuthorizationHeader: c.Request().Header.Get(echo.HeaderAuthorization),
		BodyToken:           c.FormValue("access_token"),
		QueryToken:          c.QueryParam("access_token"),
		Origin:              c.Request().Header.Get("Origin"),
	}
}

// Authenticate runs the full verification pipeline: extract the token
// string, verify the signature and claims, load the authoritative
// record, and resolve the principal.
func (b *Bearer) Authenticate(ctx context.Context, ext Extraction) (*domain.AuthContext, error) {
	tokenString, err := extractToken(ext)
	if err != nil {
		return nil, err
	}

	metrics.TokenVerificationsTotal.Inc()
	ac, err := b.verify(ctx, tokenString, ext.Origin)
	if err != nil {
		metrics.TokenVerificationFailures.Inc()
		return nil, err
	}
	return ac, nil
}

func extractToken(ext Extraction) (string, error) {
	if header := ext.AuthorizationHeader; header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			return "", errors.BadRequest(errors.CodeInvalidAuthorization,
				"the authorization header is malformed")
		}
		if !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.BadRequest(errors.CodeInvalidScheme,
				"the authorization scheme must be Bearer")
		}
		if parts[1] == "" {
			return "", errors.BadRequest(errors.CodeInvalidAuthorization,
				"the authorization header carries no token")
		}
		return parts[1], nil
	}
	if ext.BodyToken != "" {
		return ext.BodyToken, nil
	}
	if ext.QueryToken != "" {
		return ext.QueryToken, nil
	}
	return "", errors.BadRequest(errors.CodeMissingToken, "the request carries no access token")
}

func (b *Bearer) verify(ctx context.Context, tokenString, origin string) (*domain.AuthContext, error) {
	claims, err := b.codec.Verify(tokenString, codec.VerifyOptions{
		Origin:          origin,
		SkipOriginCheck: b.ignoreOrigin,
	})
	if err != nil {
		if stderrors.Is(err, codec.ErrTokenExpired) {
			return nil, errors.Forbidden(errors.CodeTokenExpired, "token has expired")
		}
		if stderrors.Is(err, codec.ErrOriginMismatch) {
			return nil, errors.Forbidden(errors.CodeInvalidOrigin,
				"token is bound to a different origin")
		}
		return nil, errors.Forbidden(errors.CodeInvalidToken, "token is invalid")
	}
	if claims.Use == codec.UseRefresh {
		return nil, errors.Forbidden(errors.CodeInvalidToken,
			"a refresh token cannot be presented as a bearer token")
	}

	token, err := b.lookupToken(ctx, claims.ID)
	if err != nil {
		return nil, errors.Forbidden(errors.CodeUnknownToken, "token record not found")
	}
	if !token.Enabled {
		return nil, errors.Forbidden(errors.CodeTokenDisabled, "token is disabled")
	}
	// The record's expiration is authoritative even when the signature
	// is still valid.
	if token.IsExpired(timeNow()) {
		return nil, errors.Forbidden(errors.CodeTokenExpired, "token has expired")
	}
	client, err := b.clients.GetClientByID(ctx, token.ClientID)
	if err != nil {
		return nil, errors.Forbidden(errors.CodeUnknownClient, "client not found")
	}
	if !client.Enabled {
		return nil, errors.Forbidden(errors.CodeClientDisabled, "client is disabled")
	}

	ac := &domain.AuthContext{
		Token:  token,
		Client: client,
		Scope:  token.Scope,
	}

	if token.Kind == domain.UserToken {
		account, err := b.accounts.GetAccountByID(ctx, token.AccountID)
		if err != nil {
			return nil, errors.Forbidden(errors.CodeUnknownAccount, "account not found")
		}
		if !account.Enabled {
			return nil, errors.Forbidden(errors.CodeAccountDisabled, "account is disabled")
		}
		ac.Account = account
	}

	if err := b.tokens.TouchToken(ctx, token.ID); err != nil {
		log.Warn().Err(err).Str("token_id", token.ID).Msg("failed to record token usage")
	}

	return ac, nil
}

func (b *Bearer) lookupToken(ctx context.Context, id string) (*domain.Token, error) {
	if b.cache != nil {
		if token, err := b.cache.Get(ctx, id); err == nil {
			return token, nil
		}
	}
	token, err := b.tokens.GetTokenByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		if cacheErr := b.cache.Set(ctx, token); cacheErr != nil {
			log.Warn().Err(cacheErr).Str("token_id", id).Msg("failed to cache token record")
		}
	}
	return token, nil
}

func checkRequiredScope(required, granted []string) error {
	if len(required) == 0 {
		return nil
	}
	if len(granted) == 0 {
		return errors.Forbidden(errors.CodeMissingScope, "token has no granted scope")
	}
	if !scope.MatchesAll(required, granted) {
		return errors.Forbidden(errors.CodeInvalidScope,
			"token scope does not cover the required scope")
	}
	return nil
}

func respondError(c echo.Context, err error) error {
	gkErr := errors.As(err)
	return c.JSON(gkErr.Status(), errors.NewErrorResponse(gkErr))
}
