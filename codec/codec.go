// Package codec signs and verifies the compact signed payload behind
// every bearer token. It is the only package that touches key material.
package codec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go.pilab.hu/gatekeeper/domain"
)

// Distinguished verification failures. Everything else the underlying
// parser reports collapses into ErrTokenMalformed.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrOriginMismatch = errors.New("token bound to another origin")
)

// Algorithm selects the signing method.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	RS256 Algorithm = "RS256"
)

// Config is the immutable configuration of a Codec. Exactly one of
// Secret (HS256) or the RSA key pair (RS256) must be set, matching the
// configured algorithm.
type Config struct {
	Algorithm Algorithm
	Secret    []byte
	// PrivateKey may be nil for verify-only deployments.
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	// Issuer is stamped into every token and enforced at verification
	// when non-empty.
	Issuer string
	// Audience is enforced at verification when non-empty.
	Audience string
}

// Use discriminates the two signed strings minted per issuance: the
// bearer access token and its refresh counterpart.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims is the signed payload. The token record's store id travels as
// the jti claim so verification can fetch the authoritative record
// without trusting signature validity alone.
type Claims struct {
	jwt.RegisteredClaims
	Kind   domain.TokenKind `json:"kind,omitempty"`
	Use    string           `json:"use,omitempty"`
	Scope  []string         `json:"scope,omitempty"`
	Origin string           `json:"origin,omitempty"`
}

// SignOptions carries the per-token fields of a signing request.
type SignOptions struct {
	TokenID   string
	Subject   string
	Audience  string
	ExpiresAt time.Time // zero means no expiration claim
	Kind      domain.TokenKind
	Use       string
	Scope     []string
	Origin    string
}

// VerifyOptions carries per-request verification inputs.
type VerifyOptions struct {
	// Origin is the caller's request origin. A token signed with a
	// bound origin fails verification when presented from another one.
	Origin string
	// SkipOriginCheck disables origin enforcement for deployments that
	// opt out of origin binding.
	SkipOriginCheck bool
}

// Codec signs and verifies tokens with a fixed algorithm and key
// material. Construct once at startup and pass by reference; a Codec is
// immutable and safe for concurrent use.
type Codec struct {
	cfg    Config
	method jwt.SigningMethod
}

// New validates the configuration and builds a Codec.
func New(cfg Config) (*Codec, error) {
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case HS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("codec: HS256 requires a secret")
		}
		method = jwt.SigningMethodHS256
	case RS256:
		if cfg.PublicKey == nil {
			return nil, errors.New("codec: RS256 requires a public key")
		}
		method = jwt.SigningMethodRS256
	default:
		return nil, fmt.Errorf("codec: unsupported algorithm %q", cfg.Algorithm)
	}
	return &Codec{cfg: cfg, method: method}, nil
}

// Sign produces the compact signed token string for opts.
func (c *Codec) Sign(opts SignOptions) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        opts.TokenID,
			Issuer:    c.cfg.Issuer,
			Subject:   opts.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Kind:   opts.Kind,
		Use:    opts.Use,
		Scope:  opts.Scope,
		Origin: opts.Origin,
	}
	if opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{opts.Audience}
	}
	if !opts.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(opts.ExpiresAt)
	}

	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.signingKey())
	if err != nil {
		return "", fmt.Errorf("codec: failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) signingKey() any {
	if c.cfg.Algorithm == HS256 {
		return c.cfg.Secret
	}
	return c.cfg.PrivateKey
}

func (c *Codec) verificationKey() any {
	if c.cfg.Algorithm == HS256 {
		return c.cfg.Secret
	}
	return c.cfg.PublicKey
}

// Verify parses and validates a token string, returning its claims.
// Expiration surfaces as ErrTokenExpired, an origin binding violation as
// ErrOriginMismatch; any other parse or validation failure surfaces as
// ErrTokenMalformed.
func (c *Codec) Verify(tokenString string, opts VerifyOptions) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{string(c.cfg.Algorithm)}),
	}
	if c.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.cfg.Issuer))
	}
	if c.cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(c.cfg.Audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.verificationKey(), nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	if !opts.SkipOriginCheck && claims.Origin != "" && claims.Origin != opts.Origin {
		return nil, ErrOriginMismatch
	}

	return &claims, nil
}
