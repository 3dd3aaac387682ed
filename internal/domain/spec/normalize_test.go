package spec

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/lifecare-ai/prodsearch/internal/domain"
)

const fullPayload = `{
	"group": "điều hòa",
	"object": "điều hòa MDV 9000BTU",
	"price": "10 triệu",
	"power": "9000BTU",
	"weight": "",
	"volume": null,
	"intent": "mua"
}`

func TestNormalize_FullPayload(t *testing.T) {
	s, err := Normalize(fullPayload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.Group().Value(); got != "điều hòa" {
		t.Errorf("group = %q", got)
	}
	if !s.Price().Specified() {
		t.Error("price should be specified")
	}
	if s.Weight().Specified() {
		t.Error("empty weight should be unspecified")
	}
	if s.Volume().Specified() {
		t.Error("null volume should be unspecified")
	}
	if s.NumericUnspecified() {
		t.Error("price and power are set")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	s, err := Normalize(fullPayload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reserialized, err := json.Marshal(s.AsMap())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	again, err := Normalize(string(reserialized))
	if err != nil {
		t.Fatalf("re-normalize: %v", err)
	}
	if !reflect.DeepEqual(s.AsMap(), again.AsMap()) {
		t.Errorf("re-normalized mapping differs:\n%v\n%v", s.AsMap(), again.AsMap())
	}
}

func TestNormalize_MissingKey(t *testing.T) {
	raw := `{"group": "điều hòa", "object": "", "price": "", "power": "", "weight": "", "volume": ""}`

	_, err := Normalize(raw)
	if !errors.Is(err, domain.ErrMalformedSpecification) {
		t.Fatalf("error = %v, want ErrMalformedSpecification", err)
	}
}

func TestNormalize_UnparseablePayload(t *testing.T) {
	for _, raw := range []string{"", "not json", `["group"]`, `{"group": 7}`} {
		_, err := Normalize(raw)
		if !errors.Is(err, domain.ErrMalformedSpecification) {
			t.Errorf("Normalize(%q) error = %v, want ErrMalformedSpecification", raw, err)
		}
	}
}

func TestNormalize_AllKeysAlwaysPresent(t *testing.T) {
	raw := `{"group": "tủ lạnh", "object": null, "price": null, "power": null, "weight": null, "volume": null, "intent": null}`

	s, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := s.AsMap()
	for _, key := range CanonicalKeys {
		if _, ok := m[key]; !ok {
			t.Errorf("key %q absent from normalized mapping", key)
		}
	}
	if !s.NumericUnspecified() {
		t.Error("all numeric fields should be unspecified")
	}
}
