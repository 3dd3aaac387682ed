package compile

import (
	"errors"
	"testing"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/spec"
)

var groups = []string{"điều hòa", "máy giặt", "tủ lạnh"}

func specWith(group, object, price, power, weight, volume string) spec.Specification {
	return spec.New(
		spec.NewField(group), spec.NewField(object),
		spec.NewField(price), spec.NewField(power),
		spec.NewField(weight), spec.NewField(volume),
		spec.NewField("mua"),
	)
}

func TestCompile_UnknownGroup(t *testing.T) {
	c := New(groups, 3)

	_, err := c.Compile(specWith("tivi_không_tồn_tại", "", "", "", "", ""))
	if !errors.Is(err, domain.ErrUnknownGroup) {
		t.Fatalf("error = %v, want ErrUnknownGroup", err)
	}

	_, err = c.Compile(specWith("", "", "", "", "", ""))
	if !errors.Is(err, domain.ErrUnknownGroup) {
		t.Fatalf("empty group error = %v, want ErrUnknownGroup", err)
	}
}

func TestCompile_BestSellerFallback(t *testing.T) {
	c := New(groups, 3)

	q, err := c.Compile(specWith("điều hòa", "", "", "", "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(q.Ranges()) != 0 {
		t.Errorf("ranges = %v, want none", q.Ranges())
	}
	s := q.Sort()
	if s == nil || s.Field != catalog.ColSoldQuantity || s.Direction != spec.SortDescending {
		t.Errorf("sort = %+v, want sold_quantity desc", s)
	}
}

func TestCompile_RangeAndMatch(t *testing.T) {
	c := New(groups, 5)

	q, err := c.Compile(specWith("điều hòa", "điều hòa MDV", "10 triệu", "", "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, ok := q.MatchValue(catalog.ColGroupProduct); !ok || v != "điều hòa" {
		t.Errorf("group match = %q", v)
	}
	if v, ok := q.MatchValue(catalog.ColGroupName); !ok || v != "điều hòa MDV" {
		t.Errorf("object match = %q", v)
	}

	if len(q.Ranges()) != 1 {
		t.Fatalf("ranges = %d, want 1", len(q.Ranges()))
	}
	r := q.Ranges()[0]
	if r.Field != catalog.ColPrice {
		t.Errorf("range field = %q", r.Field)
	}
	if r.Hint.Min() != 8_000_000 || r.Hint.Max() != 12_000_000 {
		t.Errorf("range = (%g, %g)", r.Hint.Min(), r.Hint.Max())
	}
	if q.Sort() != nil {
		t.Errorf("sort = %+v, want nil", q.Sort())
	}
	if q.Limit() != 5 {
		t.Errorf("limit = %d", q.Limit())
	}
}

func TestCompile_LastSortFieldWins(t *testing.T) {
	c := New(groups, 3)

	q, err := c.Compile(specWith("máy giặt", "", "BIGGEST", "", "SMALLEST", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := q.Sort()
	if s == nil || s.Field != catalog.ColWeight || s.Direction != spec.SortAscending {
		t.Errorf("sort = %+v, want weight asc", s)
	}
	// Both fields still carry (unconstrained) range filters.
	if len(q.Ranges()) != 2 {
		t.Errorf("ranges = %d, want 2", len(q.Ranges()))
	}
}

func TestCompile_DefaultTopK(t *testing.T) {
	c := New(groups, 0)
	q, err := c.Compile(specWith("tủ lạnh", "", "", "", "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit() != DefaultTopK {
		t.Errorf("limit = %d, want %d", q.Limit(), DefaultTopK)
	}
}
