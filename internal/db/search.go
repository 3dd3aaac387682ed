package db

// TagFilter is an exact match on a TAG field.
type TagFilter struct {
	Field string
	Value string
}

// NumericFilter bounds a NUMERIC field inclusively.
type NumericFilter struct {
	Field string
	Min   float64
	Max   float64
}

// Filter is the pre-filter applied to both KNN and BM25 legs.
type Filter struct {
	Tags   []TagFilter
	Ranges []NumericFilter
}

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool {
	return len(f.Tags) == 0 && len(f.Ranges) == 0
}

// KNNQuery is the input for vector similarity search. Encoding must match
// the TYPE the index was created with; zero value means FLOAT32.
type KNNQuery struct {
	IndexName    string
	Filter       Filter
	Vector       []float32
	Encoding     VectorType
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	TextField    string
	Filter       Filter
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
