// Package catalog loads the product table and derives the group vocabulary.
// Loading is an explicit initialization step: callers load once at startup
// and pass the catalog into the compiler and the extraction tool schema.
package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Column names of the catalog export. Backends index rows under these
// field names, so they double as the query field vocabulary.
const (
	ColID             = "product_info_id"
	ColName           = "product_name"
	ColGroupName      = "group_name"
	ColGroupProduct   = "group_product_name"
	ColPrice          = "lifecare_price"
	ColPower          = "power"
	ColWeight         = "weight"
	ColVolume         = "volume"
	ColSpecifications = "specifications"
	ColShortDesc      = "short_description"
	ColSoldQuantity   = "sold_quantity"
	ColFilePath       = "file_path"
)

// Product is one catalog row. Immutable once loaded; backends reference
// rows, they never mutate them.
type Product struct {
	ID             string
	Name           string
	GroupName      string
	GroupProduct   string
	Price          float64
	Power          float64
	Weight         float64
	Volume         float64
	Specifications string
	ShortDesc      string
	SoldQuantity   int
	FilePath       string
}

// Catalog is the read-only product table shared across queries.
type Catalog struct {
	products []Product
	groups   []string
}

// Load reads the catalog CSV. The first row must be a header carrying the
// canonical column names.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{ColID, ColName, ColGroupProduct, ColPrice, ColSoldQuantity} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("catalog %s: missing column %q", path, required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	products := make([]Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		products = append(products, Product{
			ID:             cell(row, ColID),
			Name:           cell(row, ColName),
			GroupName:      cell(row, ColGroupName),
			GroupProduct:   cell(row, ColGroupProduct),
			Price:          parseFloat(cell(row, ColPrice)),
			Power:          parseFloat(cell(row, ColPower)),
			Weight:         parseFloat(cell(row, ColWeight)),
			Volume:         parseFloat(cell(row, ColVolume)),
			Specifications: cell(row, ColSpecifications),
			ShortDesc:      cell(row, ColShortDesc),
			SoldQuantity:   int(parseFloat(cell(row, ColSoldQuantity))),
			FilePath:       cell(row, ColFilePath),
		})
	}

	return New(products), nil
}

// New builds a catalog from already-loaded rows and derives the group
// vocabulary in row order.
func New(products []Product) *Catalog {
	seen := make(map[string]struct{})
	var groups []string
	for _, p := range products {
		if p.GroupProduct == "" {
			continue
		}
		if _, ok := seen[p.GroupProduct]; ok {
			continue
		}
		seen[p.GroupProduct] = struct{}{}
		groups = append(groups, p.GroupProduct)
	}
	return &Catalog{products: products, groups: groups}
}

// Products returns all catalog rows.
func (c *Catalog) Products() []Product { return c.products }

// Groups returns the finite product-group vocabulary in first-seen order.
func (c *Catalog) Groups() []string { return c.groups }

// Len returns the number of catalog rows.
func (c *Catalog) Len() int { return len(c.products) }

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
