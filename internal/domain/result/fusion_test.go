package result

import (
	"testing"

	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
)

func hit(id string, rank int) Ranked {
	return New(catalog.Product{ID: id, Name: "product-" + id}, rank, nil)
}

func list(ids ...string) []Ranked {
	out := make([]Ranked, len(ids))
	for i, id := range ids {
		out[i] = hit(id, i)
	}
	return out
}

func TestFuseRRF_OverlapScoresHigher(t *testing.T) {
	dense := list("a", "b", "c")
	sparse := list("b", "d", "a")

	fused := FuseRRF(10, dense, sparse)
	if len(fused) != 4 {
		t.Fatalf("len = %d, want 4", len(fused))
	}

	// a and b appear in both lists and must outrank c and d.
	top := map[string]bool{fused[0].Product().ID: true, fused[1].Product().ID: true}
	if !top["a"] || !top["b"] {
		t.Errorf("top-2 = %v, want {a, b}", top)
	}

	for i := 1; i < len(fused); i++ {
		if *fused[i-1].Score() < *fused[i].Score() {
			t.Errorf("scores not descending at %d", i)
		}
		if fused[i].Rank() != i {
			t.Errorf("rank[%d] = %d", i, fused[i].Rank())
		}
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	if got := FuseRRF(10, nil, nil); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestFuseWeighted_DisjointLists(t *testing.T) {
	lists := [][]Ranked{list("a", "b"), list("c", "d"), list("e")}
	weights := []float64{0.5, 0.3, 0.2}

	fused := FuseWeighted(10, weights, lists...)

	// Disjoint inputs: every unique id survives, capped at topK.
	if len(fused) != 5 {
		t.Fatalf("len = %d, want 5", len(fused))
	}

	// Weighted reciprocal ranks: a=0.5/61, b=0.5/62, c=0.3/61, d=0.3/62,
	// e=0.2/61. The heavier list dominates both slots before the next one.
	wantOrder := []string{"a", "b", "c", "d", "e"}
	for pos, id := range wantOrder {
		if fused[pos].Product().ID != id {
			t.Errorf("fused[%d] = %s, want %s", pos, fused[pos].Product().ID, id)
		}
	}
}

func TestFuseWeighted_TopKCap(t *testing.T) {
	fused := FuseWeighted(2, []float64{1, 1}, list("a", "b"), list("c", "d"))
	if len(fused) != 2 {
		t.Errorf("len = %d, want 2", len(fused))
	}
}

func TestFuseWeighted_ZeroWeightListIgnoredInOrdering(t *testing.T) {
	fused := FuseWeighted(10, []float64{1}, list("a"), list("b"))
	if fused[0].Product().ID != "a" {
		t.Errorf("first = %s, want a", fused[0].Product().ID)
	}
	if *fused[1].Score() != 0 {
		t.Errorf("unweighted score = %g, want 0", *fused[1].Score())
	}
}
