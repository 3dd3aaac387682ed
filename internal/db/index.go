package db

import "errors"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorType is the stored vector element type. FLOAT16 halves index
// memory, standing in for scalar quantization on engines that lack it.
type VectorType string

const (
	VectorFloat32 VectorType = "FLOAT32"
	VectorFloat16 VectorType = "FLOAT16"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	// VECTOR (HNSW) options
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorType        VectorType
	VectorM           int // max edges per node (default 16)
	VectorEFConstruct int // build-time candidate list size (default 200)
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required")
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return errors.New("vector field requires positive DIM")
		}
	}

	return nil
}
