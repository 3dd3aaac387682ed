package result

import "sort"

// rrfK is the reciprocal rank fusion constant (Cormack et al. 2009).
const rrfK = 60

// FuseRRF merges ranked lists via reciprocal rank fusion:
// score(d) = sum of 1/(k + rank_i(d) + 1) over every list where d appears.
// The first-seen hit supplies the product payload. Output is ordered by
// fused score descending (ID ascending on ties) and capped at topK.
func FuseRRF(topK int, lists ...[]Ranked) []Ranked {
	weights := make([]float64, len(lists))
	for i := range weights {
		weights[i] = 1
	}
	return FuseWeighted(topK, weights, lists...)
}

// FuseWeighted merges ranked lists via weighted reciprocal rank fusion:
// score(d) = sum of w_i/(k + rank_i(d) + 1). Weights need not sum to one;
// their relative magnitudes determine each list's influence. Lists beyond
// len(weights) get weight zero.
func FuseWeighted(topK int, weights []float64, lists ...[]Ranked) []Ranked {
	type scored struct {
		hit   Ranked
		score float64
	}

	merged := make(map[string]*scored)

	for li, list := range lists {
		var w float64
		if li < len(weights) {
			w = weights[li]
		}
		for rank, r := range list {
			s := w / float64(rrfK+rank+1)
			id := r.Product().ID
			if existing, ok := merged[id]; ok {
				existing.score += s
			} else {
				merged[id] = &scored{hit: r, score: s}
			}
		}
	}

	fused := make([]*scored, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, s)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].hit.Product().ID < fused[j].hit.Product().ID
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}

	out := make([]Ranked, len(fused))
	for i, s := range fused {
		out[i] = WithScore(s.hit.Product(), i, s.score)
	}
	return out
}
