package spec

import (
	"encoding/json"
	"fmt"

	"github.com/lifecare-ai/prodsearch/internal/domain"
)

// Normalize parses the raw tool-call argument payload into a Specification.
//
// The payload is a flat JSON object mapping the seven canonical keys to a
// string or null; null and "" both normalize to Unspecified. A payload that
// does not parse, or that omits a canonical key, fails with
// domain.ErrMalformedSpecification: a missing key is an upstream contract
// violation, distinct from an intentionally empty value, and is never
// silently defaulted.
func Normalize(raw string) (Specification, error) {
	var payload map[string]*string
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Specification{}, fmt.Errorf("%w: %v", domain.ErrMalformedSpecification, err)
	}

	fields := make(map[string]Field, len(CanonicalKeys))
	for _, key := range CanonicalKeys {
		v, ok := payload[key]
		if !ok {
			return Specification{}, fmt.Errorf("%w: missing key %q", domain.ErrMalformedSpecification, key)
		}
		if v == nil {
			fields[key] = Field{}
			continue
		}
		fields[key] = NewField(*v)
	}

	return New(
		fields[KeyGroup], fields[KeyObject],
		fields[KeyPrice], fields[KeyPower], fields[KeyWeight], fields[KeyVolume],
		fields[KeyIntent],
	), nil
}
