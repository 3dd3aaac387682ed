package spec

import (
	"regexp"
	"strconv"
	"strings"
)

// SortDirection is an ordering hint derived from a specification fragment.
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAscending
	SortDescending
)

// String returns the backend-facing order keyword.
func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return "none"
	}
}

// NoLimit is the sentinel upper bound of an unconstrained range.
// The original data set never crosses it for any numeric column.
const NoLimit = 999_999_999

// Superlative markers the upstream extraction prompt canonicalizes to.
// The parser recognizes only these two literals, not arbitrary language.
const (
	markerBiggest  = "BIGGEST"
	markerSmallest = "SMALLEST"
)

// RangeHint is a normalized numeric range with an optional sort hint.
// Min <= Max always holds. An unconstrained hint spans (0, NoLimit) and
// reports Constrained() == false, distinct from an explicit zero-bounded range.
type RangeHint struct {
	min         float64
	max         float64
	sort        SortDirection
	constrained bool
}

// Min returns the inclusive lower bound.
func (h RangeHint) Min() float64 { return h.min }

// Max returns the inclusive upper bound.
func (h RangeHint) Max() float64 { return h.max }

// Sort returns the sort direction hint.
func (h RangeHint) Sort() SortDirection { return h.sort }

// Constrained reports whether the fragment carried any numeric token.
func (h RangeHint) Constrained() bool { return h.constrained }

var (
	numberPattern = regexp.MustCompile(`\d+(?:,\d+)*`)
	// Alternation order matters: single-letter units sit before their
	// two-letter forms and the trailing \b resolves the overlap, mirroring
	// the vocabulary the extraction prompt was tuned against.
	unitPattern = regexp.MustCompile(`(?i)(triệu|nghìn|tr|k|kg|l|lít|kw|w|t|btu)\b`)
)

// ParseRange turns a free-text specification fragment into a RangeHint.
//
// All numeric tokens are scaled by one unit: when several unit tokens
// appear, the last one wins. Million-class units (triệu, tr, t) scale by
// 1e6; thousand-class and kilowatt units (nghìn, k, kw) by 1e3; the rest
// (kg, l, lít, w, btu) pass through unscaled.
//
// Zero numbers yield the unconstrained default; one number yields a
// symmetric ±20% band; two or more yield (min, max).
func ParseRange(text string) RangeHint {
	hint := RangeHint{sort: sortMarker(text)}

	var numbers []float64
	for _, tok := range numberPattern.FindAllString(text, -1) {
		n, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
		if err != nil {
			continue // malformed token, skip
		}
		numbers = append(numbers, n)
	}

	scale := 1.0
	if units := unitPattern.FindAllString(text, -1); len(units) > 0 {
		scale = unitScale(strings.ToLower(units[len(units)-1]))
	}

	switch len(numbers) {
	case 0:
		hint.min, hint.max = 0, NoLimit
		return hint
	case 1:
		v := numbers[0] * scale
		hint.min, hint.max = v*0.8, v*1.2
	default:
		lo, hi := numbers[0], numbers[0]
		for _, n := range numbers[1:] {
			lo = min(lo, n)
			hi = max(hi, n)
		}
		hint.min, hint.max = lo*scale, hi*scale
	}
	hint.constrained = true
	return hint
}

func unitScale(unit string) float64 {
	switch unit {
	case "triệu", "tr", "t":
		return 1_000_000
	case "nghìn", "k", "kw":
		return 1_000
	default:
		return 1
	}
}

func sortMarker(text string) SortDirection {
	switch {
	case strings.Contains(text, markerBiggest):
		return SortDescending
	case strings.Contains(text, markerSmallest):
		return SortAscending
	default:
		return SortNone
	}
}
