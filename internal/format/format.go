// Package format renders ranked products into the chat-facing text block
// and the compact summary list used to link product detail pages.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lifecare-ai/prodsearch/internal/domain/result"
)

// Summary is a compact per-product record for downstream linking.
type Summary struct {
	ID       string `json:"product_info_id"`
	Name     string `json:"product_name"`
	FilePath string `json:"file_path"`
}

// Format renders ranked results as a 1-indexed multi-line block plus a
// parallel summary list. Empty input yields empty output, not an error.
func Format(ranked []result.Ranked) (string, []Summary) {
	if len(ranked) == 0 {
		return "", nil
	}

	var b strings.Builder
	summaries := make([]Summary, 0, len(ranked))

	for i, r := range ranked {
		p := r.Product()
		fmt.Fprintf(&b, "\n%d. Tên: '%s'\n", i+1, p.Name)
		fmt.Fprintf(&b, "   - Mã sản phẩm: %s\n", p.ID)
		fmt.Fprintf(&b, "   - Giá: %s đ\n", groupThousands(p.Price))
		fmt.Fprintf(&b, "   - Số lượng đã bán: %d\n", p.SoldQuantity)
		fmt.Fprintf(&b, "   - Thông số: %s\n", p.Specifications)

		summaries = append(summaries, Summary{
			ID:       p.ID,
			Name:     p.Name,
			FilePath: p.FilePath,
		})
	}

	return b.String(), summaries
}

// groupThousands formats a price with comma separators and no decimals.
func groupThousands(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	s := strconv.FormatFloat(v, 'f', 0, 64)
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
