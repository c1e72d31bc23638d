// Package grant implements the OAuth2-style grant strategies and the
// dispatcher that selects among them to mint bearer tokens.
package grant

import (
	"context"
	"fmt"

	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/errors"
)

// Grant type names.
const (
	TypePassword          = "password"
	TypeClientCredentials = "client_credentials"
	TypeRefresh           = "refresh"

	// TypeTemp is the historical alias for the refresh grant.
	TypeTemp = "temp"
)

// Request is the normalized, transport-independent grant request. The
// client has already been resolved and authenticated by the caller.
type Request struct {
	GrantType string
	Client    *domain.Client

	// ClientSecret is the secret the caller submitted with the
	// request. The comparison against the stored secret happens during
	// client authentication upstream; schemas only require its
	// presence here.
	ClientSecret string

	// Password grant fields. AccountID is set instead of
	// Username/Password when an earlier layer already authenticated
	// the account.
	Username  string
	Password  string
	AccountID string

	// RefreshToken is a previously issued signed token string
	// (refresh grant).
	RefreshToken string

	// Origin is the caller's web origin, bound into the issued token
	// when present.
	Origin string

	// Options are caller-supplied issuance overrides. Granters honor
	// only the keys they explicitly allow.
	Options map[string]string
}

// field returns the named request field for schema validation.
func (r *Request) field(name string) string {
	switch name {
	case "username":
		return r.Username
	case "password":
		return r.Password
	case "refresh_token":
		return r.RefreshToken
	case "client_secret":
		return r.ClientSecret
	default:
		return ""
	}
}

// Schema declares the request fields a granter requires. It may vary
// by client: a confidential client's schema demands the secret, a
// public one's does not.
type Schema struct {
	Required []string
}

// Validate checks the request against the schema. A missing field is a
// terminal BadRequest; the request never reaches token creation.
func (s Schema) Validate(req *Request) error {
	for _, name := range s.Required {
		if req.field(name) == "" {
			return errors.BadRequest(errors.CodeInvalidRequest,
				fmt.Sprintf("missing required field %q", name))
		}
	}
	return nil
}

// Issued is the outcome of a successful grant: the authoritative record
// plus the signed strings handed to the caller. RefreshToken is empty
// when the grant kind does not re-issue.
type Issued struct {
	Token        *domain.Token
	AccessToken  string
	RefreshToken string
}

// Granter is one grant strategy. Implementations validate the
// grant-specific credentials and produce a token record through the
// token issuer.
type Granter interface {
	Name() string
	Schema(client *domain.Client) Schema
	CreateToken(ctx context.Context, req *Request) (*Issued, error)
}
