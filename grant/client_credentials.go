package grant

import (
	"context"
	"time"

	"go.pilab.hu/gatekeeper/domain"
)

// ClientCredentialsGranter issues a client-only token carrying the
// client's own scope. The client's secret was already verified during
// client authentication upstream; no further credential check happens
// here.
type ClientCredentialsGranter struct {
	issuer     *TokenIssuer
	defaultTTL time.Duration
}

// NewClientCredentialsGranter creates the client_credentials granter.
func NewClientCredentialsGranter(issuer *TokenIssuer, defaultTTL time.Duration) *ClientCredentialsGranter {
	return &ClientCredentialsGranter{
		issuer:     issuer,
		defaultTTL: defaultTTL,
	}
}

func (g *ClientCredentialsGranter) Name() string {
	return TypeClientCredentials
}

func (g *ClientCredentialsGranter) Schema(client *domain.Client) Schema {
	if client.Secret != "" {
		return Schema{Required: []string{"client_secret"}}
	}
	return Schema{}
}

func (g *ClientCredentialsGranter) CreateToken(ctx context.Context, req *Request) (*Issued, error) {
	ttl, err := clientTTL(req.Client, g.defaultTTL)
	if err != nil {
		return nil, err
	}

	return g.issuer.Issue(ctx, IssueSpec{
		Kind:      domain.ClientToken,
		ClientID:  req.Client.ID,
		Scope:     req.Client.Scope,
		ExpiresIn: ttl,
		Origin:    req.Origin,
	})
}
