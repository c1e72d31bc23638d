// Package echo exposes the token issuance endpoints over the Echo web
// framework.
package echo

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/gatekeeper/api"
	"go.pilab.hu/gatekeeper/domain"
	gkerrors "go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/grant"
)

// GatekeeperAPI holds the dependencies of the token endpoints.
type GatekeeperAPI struct {
	dispatcher *grant.Dispatcher
	issuer     *grant.TokenIssuer
	tokens     domain.TokenRepository
	clients    domain.ClientRepository

	ignoreOrigin bool
}

// NewGatekeeperAPI initializes the token issuance API.
func NewGatekeeperAPI(dispatcher *grant.Dispatcher, issuer *grant.TokenIssuer, tokens domain.TokenRepository, clients domain.ClientRepository) *GatekeeperAPI {
	return &GatekeeperAPI{
		dispatcher: dispatcher,
		issuer:     issuer,
		tokens:     tokens,
		clients:    clients,
	}
}

// SetOriginBinding toggles recording the caller's Origin header on
// issued tokens. Enabled by default.
func (ga *GatekeeperAPI) SetOriginBinding(enabled bool) {
	ga.ignoreOrigin = !enabled
}

// RegisterRoutes registers the token issuance routes.
func (ga *GatekeeperAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/gatekeeper/token", ga.TokenHandler)
	e.POST("/gatekeeper/revoke", ga.RevokeHandler)

	e.GET("/healthz", ga.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// TokenHandler handles token requests. It:
//   - Extracts client_id, client_secret, and grant_type from the form.
//   - Authenticates the client and hands the request to the grant
//     dispatcher.
//   - Returns the signed token pair on success, or the structured error
//     body on failure.
func (ga *GatekeeperAPI) TokenHandler(c echo.Context) error {
	ctx := c.Request().Context()

	clientID := c.FormValue("client_id")
	if clientID == "" {
		return respondError(c, gkerrors.BadRequest(gkerrors.CodeInvalidRequest, "client_id is required"))
	}

	cli, err := ga.clients.GetClientByID(ctx, clientID)
	if err != nil {
		log.Warn().Str("client_id", clientID).Msg("token request for unknown client")
		return respondError(c, gkerrors.BadRequest(gkerrors.CodeUnknownClient, "unknown client"))
	}
	if !authenticateClient(cli, c.FormValue("client_secret")) {
		log.Warn().Str("client_id", clientID).Msg("client secret mismatch")
		return respondError(c, gkerrors.Forbidden(gkerrors.CodeInvalidSecret, "invalid client secret"))
	}

	req := &grant.Request{
		GrantType:    c.FormValue("grant_type"),
		Client:       cli,
		ClientSecret: c.FormValue("client_secret"),
		Username:     c.FormValue("username"),
		Password:     c.FormValue("password"),
		RefreshToken: c.FormValue("refresh_token"),
		Options:      grantOptions(c),
	}
	if !ga.ignoreOrigin {
		req.Origin = c.Request().Header.Get("Origin")
	}

	issued, err := ga.dispatcher.Issue(ctx, req)
	if err != nil {
		log.Warn().Err(err).
			Str("client_id", clientID).
			Str("grant_type", req.GrantType).
			Msg("grant rejected")
		return respondError(c, err)
	}

	log.Info().
		Str("client_id", clientID).
		Str("grant_type", req.GrantType).
		Str("token_id", issued.Token.ID).
		Msg("token issued")

	return c.JSON(http.StatusOK, &api.TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresIn:    expiresIn(issued.Token.ExpiresAt),
		Scope:        strings.Join(issued.Token.Scope, " "),
	})
}

// RevokeHandler disables a token record by id. The caller must
// authenticate as the client the token was issued to.
func (ga *GatekeeperAPI) RevokeHandler(c echo.Context) error {
	ctx := c.Request().Context()

	clientID := c.FormValue("client_id")
	cli, err := ga.clients.GetClientByID(ctx, clientID)
	if err != nil {
		return respondError(c, gkerrors.BadRequest(gkerrors.CodeUnknownClient, "unknown client"))
	}
	if !authenticateClient(cli, c.FormValue("client_secret")) {
		return respondError(c, gkerrors.Forbidden(gkerrors.CodeInvalidSecret, "invalid client secret"))
	}

	tokenID := c.FormValue("token_id")
	if tokenID == "" {
		return respondError(c, gkerrors.BadRequest(gkerrors.CodeInvalidRequest, "token_id is required"))
	}

	token, err := ga.tokens.GetTokenByID(ctx, tokenID)
	if err != nil {
		return respondError(c, err)
	}
	if token.ClientID != clientID {
		log.Warn().
			Str("token_id", tokenID).
			Str("client_id", clientID).
			Msg("revoke refused for token of another client")
		return respondError(c, gkerrors.Forbidden(gkerrors.CodeInvalidToken,
			"token was issued to a different client"))
	}

	if err := ga.issuer.Revoke(ctx, tokenID); err != nil {
		log.Error().Err(err).Str("token_id", tokenID).Msg("failed to revoke token")
		return respondError(c, err)
	}

	log.Info().Str("token_id", tokenID).Str("client_id", clientID).Msg("token revoked")

	return c.JSON(http.StatusOK, &api.RevokeResponse{Revoked: true})
}

// HealthHandler reports liveness.
func (ga *GatekeeperAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func authenticateClient(cli *domain.Client, secret string) bool {
	if cli.Secret == "" {
		return secret == ""
	}
	return subtle.ConstantTimeCompare([]byte(cli.Secret), []byte(secret)) == 1
}

// grantOptions lifts the remaining form fields into the free-form
// options map the granters consume.
func grantOptions(c echo.Context) map[string]string {
	opts := make(map[string]string)
	for _, name := range []string{"audience", "expiresIn", "scope"} {
		if v := c.FormValue(name); v != "" {
			opts[name] = v
		}
	}
	return opts
}

func expiresIn(expiresAt time.Time) int {
	if expiresAt.IsZero() {
		return 0
	}
	remaining := time.Until(expiresAt).Seconds()
	if remaining < 0 {
		return 0
	}
	return int(math.Round(remaining))
}

func respondError(c echo.Context, err error) error {
	gkErr := gkerrors.As(err)
	return c.JSON(gkErr.Status(), gkerrors.NewErrorResponse(gkErr))
}
