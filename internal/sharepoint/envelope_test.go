package sharepoint

import (
	"errors"
	"testing"
)

func TestParsePayload(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		p, err := parsePayload(nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !p.Empty() {
			t.Error("expected empty payload")
		}
		if got := p.Results(); got != nil {
			t.Errorf("Results() = %v, want nil", got)
		}
	})

	t.Run("single object", func(t *testing.T) {
		p, err := parsePayload([]byte(`{"d":{"Id":3,"Status":"Pending"}}`))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := p.Result().Get("Id").Int(); got != 3 {
			t.Errorf("Id = %d, want 3", got)
		}
		if got := len(p.Results()); got != 1 {
			t.Errorf("Results() length = %d, want 1 (single object wraps)", got)
		}
	})

	t.Run("collection", func(t *testing.T) {
		p, err := parsePayload([]byte(`{"d":{"results":[{"Id":1},{"Id":2}]}}`))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := len(p.Results()); got != 2 {
			t.Errorf("Results() length = %d, want 2", got)
		}
	})

	t.Run("missing envelope", func(t *testing.T) {
		_, err := parsePayload([]byte(`{"Id":1}`))
		var envErr *EnvelopeError
		if !errors.As(err, &envErr) {
			t.Fatalf("error = %v, want EnvelopeError", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parsePayload([]byte(`{"d":`))
		var envErr *EnvelopeError
		if !errors.As(err, &envErr) {
			t.Fatalf("error = %v, want EnvelopeError", err)
		}
	})
}
