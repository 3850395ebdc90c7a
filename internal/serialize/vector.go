package serialize

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

const (
	// summaryPreviewLen bounds the per-row vector preview.
	summaryPreviewLen = 32
	// batchPreviewVectors bounds how many vectors the preview operation shows.
	batchPreviewVectors = 20
	// hintDim is the dimension that triggers the embedding-model annotation.
	hintDim = 512

	modelHint = "possible CLIP ViT-B/32 embedding"
)

// Summarize reduces a raw vector to its summary statistics and a bounded
// preview. Raw vectors are never returned whole. NaN and infinite elements
// are replaced with 0.0 so occasional bad floats do not reject the vector;
// statistics are computed over the sanitized sequence.
func Summarize(raw []float64) map[string]any {
	if raw == nil {
		return nil
	}
	if len(raw) == 0 {
		return map[string]any{"error": "invalid vector data"}
	}

	vals := make([]float64, len(raw))
	finite := 0
	for i, v := range raw {
		if isFinite(v) {
			vals[i] = v
			finite++
		}
	}
	if finite == 0 {
		return map[string]any{"error": "no valid numeric values in vector"}
	}

	dim := len(vals)
	minV, maxV := vals[0], vals[0]
	var sum, sumSq float64
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)

	preview := vals
	if len(preview) > summaryPreviewLen {
		preview = preview[:summaryPreviewLen]
	}

	summary := map[string]any{
		"type":    "vector",
		"dim":     dim,
		"norm":    norm,
		"min":     minV,
		"max":     maxV,
		"mean":    sum / float64(dim),
		"preview": preview,
	}

	if dim == hintDim {
		var sparse, positive int
		for _, v := range vals {
			if math.Abs(v) < 0.01 {
				sparse++
			}
			if v > 0 {
				positive++
			}
		}
		summary["model_hint"] = modelHint
		summary["normalized"] = math.Abs(norm-1.0) < 0.01
		summary["sparsity"] = float64(sparse) / float64(dim)
		summary["positive_ratio"] = float64(positive) / float64(dim)
	}

	return summary
}

// BatchStats aggregates over every scalar element of every valid vector in
// a preview batch, not per vector.
type BatchStats struct {
	Count int     `json:"count"`
	Dim   int     `json:"dim"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// VectorPreview is one previewed vector: its L2 norm and a bounded sample.
type VectorPreview struct {
	Norm   float64   `json:"norm"`
	Sample []float64 `json:"sample"`
}

// BatchPreview summarizes a batch of vectors for the preview operation.
// Nil and empty vectors are skipped; with no valid vectors the stats are
// nil and the preview empty.
func BatchPreview(vectors [][]float64) (*BatchStats, []VectorPreview) {
	valid := make([][]float64, 0, len(vectors))
	for _, v := range vectors {
		if len(v) > 0 {
			valid = append(valid, sanitize(v))
		}
	}
	if len(valid) == 0 {
		return nil, []VectorPreview{}
	}

	stats := &BatchStats{
		Count: len(valid),
		Dim:   len(valid[0]),
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}
	var sum float64
	var n int
	for _, vec := range valid {
		for _, v := range vec {
			if v < stats.Min {
				stats.Min = v
			}
			if v > stats.Max {
				stats.Max = v
			}
			sum += v
			n++
		}
	}
	stats.Mean = sum / float64(n)

	limit := len(valid)
	if limit > batchPreviewVectors {
		limit = batchPreviewVectors
	}
	preview := make([]VectorPreview, 0, limit)
	for _, vec := range valid[:limit] {
		sample := vec
		if len(sample) > summaryPreviewLen {
			sample = sample[:summaryPreviewLen]
		}
		preview = append(preview, VectorPreview{Norm: l2(vec), Sample: sample})
	}
	return stats, preview
}

// VectorDim reports whether dt is a vector type (a list of floating-point
// values). dim is -1 when the length is not statically known.
func VectorDim(dt arrow.DataType) (int, bool) {
	switch t := dt.(type) {
	case *arrow.FixedSizeListType:
		if isFloatID(t.Elem().ID()) {
			return int(t.Len()), true
		}
	case *arrow.ListType:
		if isFloatID(t.Elem().ID()) {
			return -1, true
		}
	}
	return 0, false
}

// VectorColumn extracts every row of a vector column as float64 slices.
// Null rows map to nil. ok is false when the column is not vector-typed.
func VectorColumn(arr arrow.Array) ([][]float64, bool) {
	if _, ok := VectorDim(arr.DataType()); !ok {
		return nil, false
	}
	out := make([][]float64, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			continue
		}
		if vals, ok := vectorAt(arr, i); ok {
			out[i] = vals
		}
	}
	return out, true
}

// vectorAt reads one row of a list-of-float column. Null elements surface
// as NaN and are sanitized downstream.
func vectorAt(arr arrow.Array, i int) ([]float64, bool) {
	var (
		values     arrow.Array
		start, end int64
	)
	switch a := arr.(type) {
	case *array.FixedSizeList:
		n := int64(a.DataType().(*arrow.FixedSizeListType).Len())
		start = int64(a.Data().Offset()+i) * n
		end = start + n
		values = a.ListValues()
	case *array.List:
		start, end = a.ValueOffsets(i)
		values = a.ListValues()
	default:
		return nil, false
	}

	out := make([]float64, 0, end-start)
	switch vals := values.(type) {
	case *array.Float16:
		for k := start; k < end; k++ {
			if vals.IsNull(int(k)) {
				out = append(out, math.NaN())
				continue
			}
			out = append(out, float64(vals.Value(int(k)).Float32()))
		}
	case *array.Float32:
		for k := start; k < end; k++ {
			if vals.IsNull(int(k)) {
				out = append(out, math.NaN())
				continue
			}
			out = append(out, float64(vals.Value(int(k))))
		}
	case *array.Float64:
		for k := start; k < end; k++ {
			if vals.IsNull(int(k)) {
				out = append(out, math.NaN())
				continue
			}
			out = append(out, vals.Value(int(k)))
		}
	default:
		return nil, false
	}
	return out, true
}

func sanitize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		if isFinite(v) {
			out[i] = v
		}
	}
	return out
}

func l2(vals []float64) float64 {
	var sumSq float64
	for _, v := range vals {
		sumSq += v * v
	}
	return math.Sqrt(sumSq)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
