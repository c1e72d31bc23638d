package api

// TokenResponse is the body returned by the token endpoint on a
// successful grant.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RevokeResponse acknowledges a revocation request.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}
