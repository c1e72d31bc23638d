package middleware

import (
	"github.com/labstack/echo/v4"

	"go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/internal/metrics"
	"go.pilab.hu/gatekeeper/policy"
)

// RequirePolicy evaluates a policy after authentication. A structured
// failure surfaces with its own code and message; a plain fail gets the
// caller-supplied defaults. It should be mounted after the bearer
// middleware so the policy can read the resolved auth context.
func RequirePolicy(p policy.Policy, defaultCode, defaultMessage string) echo.MiddlewareFunc {
	if defaultCode == "" {
		defaultCode = errors.CodePolicyFailed
	}
	if defaultMessage == "" {
		defaultMessage = "the request was denied by policy"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := p.RunCheck(c.Request().Context())
			if err != nil {
				return respondError(c, errors.Internal("policy evaluation failed"))
			}
			if !result.Passed() {
				metrics.PolicyDenialsTotal.Inc()
				if failure := result.Failure(); failure != nil {
					return respondError(c, errors.Forbidden(failure.Code, failure.Message))
				}
				return respondError(c, errors.Forbidden(defaultCode, defaultMessage))
			}
			return next(c)
		}
	}
}
