package grant

import (
	"context"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/internal/metrics"
)

// Dispatcher selects the granter matching a request's grant type, runs
// the granter's validation schema, and delegates token creation. It
// performs no retries: issuance is not idempotent and must never be
// silently repeated.
type Dispatcher struct {
	granters map[string]Granter
}

// NewDispatcher creates a dispatcher over the given granters.
func NewDispatcher(granters ...Granter) *Dispatcher {
	d := &Dispatcher{granters: make(map[string]Granter)}
	for _, g := range granters {
		d.granters[g.Name()] = g
	}
	return d
}

// RegisterAlias makes an additional grant_type value select an already
// registered granter ("temp" for the refresh granter).
func (d *Dispatcher) RegisterAlias(alias, name string) {
	if g, ok := d.granters[name]; ok {
		d.granters[alias] = g
	}
}

// Issue runs the single-transition state machine: select granter,
// validate, create. Unknown grant type and schema failure are terminal
// BadRequests that never reach CreateToken.
func (d *Dispatcher) Issue(ctx context.Context, req *Request) (*Issued, error) {
	granter, ok := d.granters[req.GrantType]
	if !ok {
		return nil, errors.BadRequest(errors.CodeUnsupportedGrantType,
			"the authorization grant type is not supported")
	}

	if req.Client == nil {
		return nil, errors.BadRequest(errors.CodeInvalidRequest, "missing client")
	}
	if !req.Client.Enabled {
		return nil, errors.Forbidden(errors.CodeClientDisabled, "client is disabled")
	}

	// A client registered with an origin binds its tokens to it even
	// when the request carries none.
	if req.Origin == "" {
		req.Origin = req.Client.Origin
	}

	if err := granter.Schema(req.Client).Validate(req); err != nil {
		metrics.GrantFailuresTotal.WithLabelValues(req.GrantType).Inc()
		return nil, err
	}

	issued, err := granter.CreateToken(ctx, req)
	if err != nil {
		metrics.GrantFailuresTotal.WithLabelValues(req.GrantType).Inc()
		log.Debug().Err(err).
			Str("grant_type", req.GrantType).
			Str("client_id", req.Client.ID).
			Msg("grant request failed")
		return nil, err
	}

	metrics.TokensIssuedTotal.WithLabelValues(req.GrantType).Inc()
	return issued, nil
}
