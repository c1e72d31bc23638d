package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go.pilab.hu/gatekeeper/api"
	"go.pilab.hu/gatekeeper/codec"
	"go.pilab.hu/gatekeeper/domain"
	gkerrors "go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/grant"
	"go.pilab.hu/gatekeeper/internal/auth"
	"go.pilab.hu/gatekeeper/middleware"
)

type memTokenRepo struct {
	tokens map[string]*domain.Token
}

func (r *memTokenRepo) StoreToken(_ context.Context, token *domain.Token) error {
	r.tokens[token.ID] = token
	return nil
}

func (r *memTokenRepo) GetTokenByID(_ context.Context, id string) (*domain.Token, error) {
	token, ok := r.tokens[id]
	if !ok {
		return nil, gkerrors.NotFound(gkerrors.CodeUnknownToken, "token not found")
	}
	return token, nil
}

func (r *memTokenRepo) DisableToken(_ context.Context, id string) error {
	if token, ok := r.tokens[id]; ok {
		token.Enabled = false
	}
	return nil
}

func (r *memTokenRepo) DisableAccountTokens(_ context.Context, accountID string) error {
	for _, token := range r.tokens {
		if token.AccountID == accountID {
			token.Enabled = false
		}
	}
	return nil
}

func (r *memTokenRepo) TouchToken(_ context.Context, _ string) error { return nil }

type memClientRepo struct {
	clients map[string]*domain.Client
}

func (r *memClientRepo) CreateClient(_ context.Context, client *domain.Client) error {
	r.clients[client.ID] = client
	return nil
}

func (r *memClientRepo) GetClientByID(_ context.Context, id string) (*domain.Client, error) {
	client, ok := r.clients[id]
	if !ok {
		return nil, gkerrors.NotFound(gkerrors.CodeUnknownClient, "client not found")
	}
	return client, nil
}

func (r *memClientRepo) UpdateClient(_ context.Context, client *domain.Client) error {
	r.clients[client.ID] = client
	return nil
}

func (r *memClientRepo) SetClientEnabled(_ context.Context, id string, enabled bool) error {
	if client, ok := r.clients[id]; ok {
		client.Enabled = enabled
	}
	return nil
}

func (r *memClientRepo) UpdateClientScope(_ context.Context, id string, scope []string) error {
	if client, ok := r.clients[id]; ok {
		client.Scope = scope
	}
	return nil
}

type memAccountRepo struct {
	accounts map[string]*domain.Account
}

func (r *memAccountRepo) CreateAccount(_ context.Context, account *domain.Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) GetAccountByID(_ context.Context, id string) (*domain.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, gkerrors.NotFound(gkerrors.CodeUnknownAccount, "account not found")
	}
	return account, nil
}

func (r *memAccountRepo) GetAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	for _, account := range r.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return nil, gkerrors.NotFound(gkerrors.CodeUnknownAccount, "account not found")
}

func (r *memAccountRepo) UpdateAccount(_ context.Context, account *domain.Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) SetAccountEnabled(_ context.Context, id string, enabled bool) error {
	if account, ok := r.accounts[id]; ok {
		account.Enabled = enabled
	}
	return nil
}

// newServer wires the full stack against in-memory repositories: the
// token endpoint plus a bearer-protected resource.
func newServer(t *testing.T) (*echo.Echo, *memTokenRepo) {
	t.Helper()

	signer, err := codec.New(codec.Config{
		Algorithm: codec.HS256,
		Secret:    []byte("api-test-secret"),
		Issuer:    "gatekeeper-test",
	})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("sw0rdfish"), bcrypt.MinCost)
	require.NoError(t, err)

	tokens := &memTokenRepo{tokens: make(map[string]*domain.Token)}
	clients := &memClientRepo{clients: map[string]*domain.Client{
		"web": {
			ID:         "web",
			Secret:     "s3cret",
			Scope:      []string{"app.read"},
			Expiration: "10 minutes",
			Enabled:    true,
		},
		"other": {
			ID:      "other",
			Secret:  "other-secret",
			Enabled: true,
		},
	}}
	accounts := &memAccountRepo{accounts: map[string]*domain.Account{
		"acct-1": {
			ID:       "acct-1",
			Username: "hilda",
			Password: string(hash),
			Scope:    []string{"profile.read"},
			Enabled:  true,
		},
	}}

	issuer := grant.NewTokenIssuer(tokens, nil, signer)
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	dispatcher := grant.NewDispatcher(
		grant.NewPasswordGranter(accounts, issuer, hasher, time.Hour),
		grant.NewClientCredentialsGranter(issuer, time.Hour),
		grant.NewRefreshGranter(tokens, accounts, signer, issuer, time.Hour),
	)
	dispatcher.RegisterAlias(grant.TypeTemp, grant.TypeRefresh)

	e := echo.New()
	NewGatekeeperAPI(dispatcher, issuer, tokens, clients).RegisterRoutes(e)

	bearer := middleware.NewBearer(signer, tokens, clients, accounts, nil)
	e.GET("/profile", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"profile": "hilda"})
	}, bearer.Middleware("profile.read"))
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, bearer.Middleware("admin.write"))

	return e, tokens
}

func postForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) *api.TokenResponse {
	t.Helper()
	var resp api.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

func TestTokenEndpoint_PasswordGrant(t *testing.T) {
	e, tokens := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"username":      {"hilda"},
		"password":      {"sw0rdfish"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeToken(t, rec)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.InDelta(t, 600, resp.ExpiresIn, 5)
	assert.Equal(t, "app.read profile.read", resp.Scope)
	assert.Len(t, tokens.tokens, 1)

	// The issued token authenticates against a protected resource.
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+resp.AccessToken)
	authRec := httptest.NewRecorder()
	e.ServeHTTP(authRec, req)
	assert.Equal(t, http.StatusOK, authRec.Code)

	// A scope the union does not cover is refused.
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+resp.AccessToken)
	authRec = httptest.NewRecorder()
	e.ServeHTTP(authRec, req)
	assert.Equal(t, http.StatusForbidden, authRec.Code)
	assert.Contains(t, authRec.Body.String(), gkerrors.CodeInvalidScope)
}

func TestTokenEndpoint_BadClientSecret(t *testing.T) {
	e, tokens := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web"},
		"client_secret": {"wrong"},
		"username":      {"hilda"},
		"password":      {"sw0rdfish"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), gkerrors.CodeInvalidSecret)
	assert.Empty(t, tokens.tokens)
}

func TestTokenEndpoint_UnknownClient(t *testing.T) {
	e, _ := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type": {"password"},
		"client_id":  {"nope"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), gkerrors.CodeUnknownClient)
}

func TestTokenEndpoint_UnsupportedGrantType(t *testing.T) {
	e, _ := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"implicit"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), gkerrors.CodeUnsupportedGrantType)
}

func TestTokenEndpoint_SchemaFailure(t *testing.T) {
	e, tokens := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"username":      {"hilda"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), gkerrors.CodeInvalidRequest)
	assert.Empty(t, tokens.tokens, "schema failure must not create a record")
}

func TestTokenEndpoint_RefreshGrant(t *testing.T) {
	e, tokens := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"username":      {"hilda"},
		"password":      {"sw0rdfish"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeToken(t, rec)

	rec = postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"refresh"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"refresh_token": {first.RefreshToken},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeToken(t, rec)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, first.Scope, second.Scope)
	assert.Len(t, tokens.tokens, 2)
}

func TestTokenEndpoint_ClientCredentialsGrant(t *testing.T) {
	e, _ := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeToken(t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Empty(t, resp.RefreshToken, "client tokens are not refreshable by default")
	assert.Equal(t, "app.read", resp.Scope)
}

func TestRevokeEndpoint(t *testing.T) {
	e, tokens := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"username":      {"hilda"},
		"password":      {"sw0rdfish"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeToken(t, rec)

	var tokenID string
	for id := range tokens.tokens {
		tokenID = id
	}

	rec = postForm(e, "/gatekeeper/revoke", url.Values{
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"token_id":      {tokenID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, tokens.tokens[tokenID].Enabled)

	// The revoked token no longer authenticates.
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+resp.AccessToken)
	authRec := httptest.NewRecorder()
	e.ServeHTTP(authRec, req)
	assert.Equal(t, http.StatusForbidden, authRec.Code)
	assert.Contains(t, authRec.Body.String(), gkerrors.CodeTokenDisabled)
}

func TestRevokeEndpoint_RejectsForeignToken(t *testing.T) {
	e, tokens := newServer(t)

	rec := postForm(e, "/gatekeeper/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
		"username":      {"hilda"},
		"password":      {"sw0rdfish"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokenID string
	for id := range tokens.tokens {
		tokenID = id
	}

	// A different client cannot revoke a token it did not obtain.
	rec = postForm(e, "/gatekeeper/revoke", url.Values{
		"client_id":     {"other"},
		"client_secret": {"other-secret"},
		"token_id":      {tokenID},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), gkerrors.CodeInvalidToken)
	assert.True(t, tokens.tokens[tokenID].Enabled, "foreign revoke must not disable the token")
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
