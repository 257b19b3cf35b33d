package sharepoint

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Payload is a parsed OData verbose response. The backing store wraps every
// success body in `{"d": ...}` and collections in `{"d": {"results": [...]}}`.
// A 204 or empty body parses to the empty payload.
type Payload struct {
	raw []byte
}

// parsePayload validates body as an OData envelope. Empty bodies are valid.
func parsePayload(body []byte) (Payload, error) {
	if len(body) == 0 {
		return Payload{}, nil
	}
	if !gjson.ValidBytes(body) {
		return Payload{}, &EnvelopeError{Err: fmt.Errorf("body is not valid JSON")}
	}
	if !gjson.GetBytes(body, "d").Exists() {
		return Payload{}, &EnvelopeError{Err: fmt.Errorf("body has no d wrapper")}
	}
	return Payload{raw: body}, nil
}

// Empty reports whether the payload carries no body (204 responses).
func (p Payload) Empty() bool { return len(p.raw) == 0 }

// Result returns the unwrapped `d` value.
func (p Payload) Result() gjson.Result {
	if p.Empty() {
		return gjson.Result{}
	}
	return gjson.GetBytes(p.raw, "d")
}

// Results returns the collection under `d.results`, or the single `d` value
// as a one-element slice when the response was not a collection.
func (p Payload) Results() []gjson.Result {
	if p.Empty() {
		return nil
	}
	if results := gjson.GetBytes(p.raw, "d.results"); results.Exists() {
		return results.Array()
	}
	return []gjson.Result{p.Result()}
}
