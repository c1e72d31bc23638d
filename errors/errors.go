package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by the HTTP-equivalent class it maps to.
type Kind int

const (
	// KindBadRequest covers malformed or missing input, before any
	// authentication has happened (unknown grant type, missing fields).
	KindBadRequest Kind = iota
	// KindForbidden covers authenticated-but-disallowed: wrong scope,
	// disabled account/client/token, expired or invalid token, origin
	// mismatch.
	KindForbidden
	// KindNotFound covers a referenced entity that does not exist.
	KindNotFound
	// KindInternal covers contract violations inside the server itself.
	KindInternal
)

// Error is a failure with a stable machine-readable code and a
// human-readable message. It is the only error type that crosses the
// package boundaries of the authorization subsystem.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status maps the error kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Stable error codes used across the subsystem.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeUnsupportedGrantType = "unsupported_grant_type"
	CodeInvalidUsername      = "invalid_username"
	CodeInvalidPassword      = "invalid_password"
	CodeAccountDisabled      = "account_disabled"
	CodeClientDisabled       = "client_disabled"
	CodeUnknownClient        = "unknown_client"
	CodeInvalidSecret        = "invalid_secret"
	CodeUnknownAccount       = "unknown_account"
	CodeAccountForbidden     = "account_forbidden"
	CodeInvalidToken         = "invalid_token"
	CodeTokenDisabled        = "token_disabled"
	CodeTokenExpired         = "token_expired"
	CodeUnknownToken         = "unknown_token"
	CodeMissingToken         = "missing_token"
	CodeInvalidScheme        = "invalid_scheme"
	CodeInvalidAuthorization = "invalid_authorization"
	CodeMissingScope         = "missing_scope"
	CodeInvalidScope         = "invalid_scope"
	CodeInvalidOrigin        = "invalid_origin"
	CodePolicyFailed         = "policy_failed"
	CodeInternalError        = "internal_error"
)

// BadRequest creates a KindBadRequest error.
func BadRequest(code, message string) *Error {
	return &Error{Kind: KindBadRequest, Code: code, Message: message}
}

// Forbidden creates a KindForbidden error.
func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// NotFound creates a KindNotFound error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Internal creates a KindInternal error.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternalError, Message: message}
}

// As extracts an *Error from err, wrapping foreign errors into a
// KindInternal error so callers always get the structured form.
func As(err error) *Error {
	var gkErr *Error
	if errors.As(err, &gkErr) {
		return gkErr
	}
	return Internal(err.Error())
}

// ErrorItem is one entry of the wire-level error body.
type ErrorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorResponse is the structured error body returned by every endpoint:
// { "errors": [ { code, message, status } ] }.
type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

// NewErrorResponse builds the wire body for err.
func NewErrorResponse(err error) *ErrorResponse {
	gkErr := As(err)
	return &ErrorResponse{
		Errors: []ErrorItem{{
			Code:    gkErr.Code,
			Message: gkErr.Message,
			Status:  gkErr.Status(),
		}},
	}
}
