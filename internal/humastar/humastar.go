// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming to the Datastar SSE protocol via [SSE] and [Stream]
//   - Signals: typed Datastar signal parsing via [Signals] and [SignalsInput]
//   - Links: RFC 8288 Link headers from static maps, [Actor] and [Pager] bodies
//
// Usage:
//
//	func (h *MyHandler) Watch(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return humastar.Stream(func(sse humastar.SSE) {
//	        sse.Signals(map[string]any{"count": 1})
//	    }), nil
//	}
package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// SSE is a Datastar event generator bound to one Huma response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Signals patches signals into the page.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Signals is the flat JSON object Datastar posts with every action.
type Signals map[string]any

// ParseSignals decodes a Datastar request body.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// Has reports whether key was sent, even as a zero value.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Float returns a numeric signal, or 0 when it is missing or not a number.
func (s Signals) Float(key string) float64 {
	switch n := s[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// FloatOr is Float with a default for signals that were not sent.
func (s Signals) FloatOr(key string, def float64) float64 {
	if !s.Has(key) {
		return def
	}
	return s.Float(key)
}

type EmptyInput struct{}

// SignalsInput receives the raw Datastar signal body.
type SignalsInput struct {
	RawBody []byte
}

// MustParse parses the signals or returns a Huma 400 error.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid signals", err)
	}
	return signals, nil
}
