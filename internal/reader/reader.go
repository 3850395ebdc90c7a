// Package reader materializes dataset row windows through a descending
// chain of strategies. Content problems never escape this package as
// errors; they degrade the window tier by tier until something well formed
// can be returned. Caller mistakes and backend faults still fail fast.
package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/rs/zerolog"

	"github.com/23skdu/longview/internal/catalog"
	lverrors "github.com/23skdu/longview/internal/errors"
	"github.com/23skdu/longview/internal/metrics"
)

// DefaultChunkRows is the chunk size the degraded read path uses when the
// full materialization fails.
const DefaultChunkRows = 10

// Tier identifies the strategy that produced a window.
type Tier int

const (
	TierFull Tier = iota + 1
	TierChunked
	TierSchemaOnly
	TierFailure
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierChunked:
		return "chunked"
	case TierSchemaOnly:
		return "schema_only"
	case TierFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// SyntheticRow stands in for real data when every read strategy failed.
type SyntheticRow struct {
	Status  string
	Message string
}

// Window is one materialized row range. Records carry real data on the
// full and chunked tiers; Synthetic carries the diagnostic row on the
// degraded tiers. Total is the row count the tier could establish, not
// the window length. The caller must Release the window.
type Window struct {
	Tier      Tier
	Schema    *arrow.Schema
	Records   []arrow.RecordBatch
	Synthetic []SyntheticRow
	Total     int64
}

// Release frees the record slices this window owns.
func (w *Window) Release() {
	for _, rec := range w.Records {
		rec.Release()
	}
	w.Records = nil
}

// Reader runs the strategy chain against catalog handles.
type Reader struct {
	logger    zerolog.Logger
	chunkRows int
}

func New(logger zerolog.Logger, chunkRows int) *Reader {
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}
	return &Reader{logger: logger, chunkRows: chunkRows}
}

// ReadWindow materializes rows [offset, offset+limit) of ds, projected to
// columns when any are named. Unknown projected columns reject the request
// up front on the primary path; degraded tiers instead drop what is
// missing. Context and backend errors propagate, everything else degrades.
func (r *Reader) ReadWindow(ctx context.Context, ds *catalog.Dataset, columns []string, offset, limit int) (*Window, error) {
	w, err := r.readFull(ctx, ds, columns, offset, limit)
	if err == nil {
		return r.served(ds, w), nil
	}
	switch lverrors.ClassOf(err) {
	case lverrors.ClassPrecondition, lverrors.ClassBackend:
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	firstErr := err
	r.logger.Warn().Err(err).Str("dataset", ds.Name()).Msg("full read failed, trying chunked read")

	w, err = r.readChunked(ctx, ds, columns, offset, limit)
	if err == nil {
		return r.served(ds, w), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.logger.Warn().Err(err).Str("dataset", ds.Name()).Msg("chunked read failed, trying schema diagnostic")

	w, err = r.schemaDiagnostic(ds, offset)
	if err == nil {
		return r.served(ds, w), nil
	}
	r.logger.Error().Err(err).Str("dataset", ds.Name()).Msg("schema introspection failed, serving failure row")

	return r.served(ds, failureWindow(firstErr, offset)), nil
}

func (r *Reader) served(ds *catalog.Dataset, w *Window) *Window {
	metrics.ReadTierTotal.WithLabelValues(w.Tier.String()).Inc()
	if w.Tier != TierFull {
		r.logger.Info().Str("dataset", ds.Name()).Str("tier", w.Tier.String()).Msg("window served degraded")
	}
	return w
}

func (r *Reader) readFull(ctx context.Context, ds *catalog.Dataset, columns []string, offset, limit int) (*Window, error) {
	recs, err := ds.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	schema, err := materialSchema(ds, recs)
	if err != nil {
		return nil, err
	}

	var indices []int
	if len(columns) > 0 {
		if missing := missingColumns(schema, columns); len(missing) > 0 {
			return nil, lverrors.NewPrecondition("read", "invalid columns: "+strings.Join(missing, ", "))
		}
		indices = presentIndices(schema, columns)
	}

	out, outSchema := windowRecords(recs, schema, indices, offset, limit)
	return &Window{Tier: TierFull, Schema: outSchema, Records: out, Total: totalRows(recs)}, nil
}

func (r *Reader) readChunked(ctx context.Context, ds *catalog.Dataset, columns []string, offset, limit int) (*Window, error) {
	recs, err := ds.ReadChunk(ctx, r.chunkRows)
	if err != nil {
		return nil, err
	}
	schema, err := materialSchema(ds, recs)
	if err != nil {
		return nil, err
	}

	indices := presentIndices(schema, columns)
	out, outSchema := windowRecords(recs, schema, indices, offset, limit)
	return &Window{Tier: TierChunked, Schema: outSchema, Records: out, Total: totalRows(recs)}, nil
}

func (r *Reader) schemaDiagnostic(ds *catalog.Dataset, offset int) (*Window, error) {
	schema, err := ds.Schema()
	if err != nil {
		return nil, err
	}
	w := &Window{Tier: TierSchemaOnly, Schema: schema, Total: 1}
	if offset == 0 {
		w.Synthetic = []SyntheticRow{{Status: "degraded", Message: schemaText(schema)}}
	}
	return w, nil
}

func failureWindow(cause error, offset int) *Window {
	w := &Window{Tier: TierFailure, Total: 1}
	if offset == 0 {
		w.Synthetic = []SyntheticRow{{Status: "error", Message: fmt.Sprintf("failed to read dataset: %v", cause)}}
	}
	return w
}

func schemaText(schema *arrow.Schema) string {
	parts := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return "schema: " + strings.Join(parts, ", ")
}

func materialSchema(ds *catalog.Dataset, recs []arrow.RecordBatch) (*arrow.Schema, error) {
	if len(recs) > 0 {
		return recs[0].Schema(), nil
	}
	return ds.Schema()
}

func totalRows(recs []arrow.RecordBatch) int64 {
	var n int64
	for _, rec := range recs {
		n += rec.NumRows()
	}
	return n
}

func missingColumns(schema *arrow.Schema, columns []string) []string {
	var missing []string
	for _, name := range columns {
		if len(schema.FieldIndices(name)) == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// presentIndices resolves the projection to field indices in requested
// order, skipping names the schema does not have. A nil result means no
// projection applies and the window keeps every column.
func presentIndices(schema *arrow.Schema, columns []string) []int {
	var indices []int
	for _, name := range columns {
		if is := schema.FieldIndices(name); len(is) > 0 {
			indices = append(indices, is[0])
		}
	}
	return indices
}

// windowRecords slices recs to rows [offset, offset+limit) and applies the
// projection. Returned records are retained for the window and must be
// released with it.
func windowRecords(recs []arrow.RecordBatch, schema *arrow.Schema, indices []int, offset, limit int) ([]arrow.RecordBatch, *arrow.Schema) {
	outSchema := schema
	if indices != nil {
		fields := make([]arrow.Field, len(indices))
		for i, idx := range indices {
			fields[i] = schema.Field(idx)
		}
		outSchema = arrow.NewSchema(fields, nil)
	}

	lo, hi := int64(offset), int64(offset)+int64(limit)
	var out []arrow.RecordBatch
	var cursor int64
	for _, rec := range recs {
		recLo, recHi := cursor, cursor+rec.NumRows()
		cursor = recHi
		if recHi <= lo || recLo >= hi || rec.NumRows() == 0 {
			continue
		}
		sl := rec.NewSlice(max(lo, recLo)-recLo, min(hi, recHi)-recLo)
		if indices == nil {
			out = append(out, sl)
			continue
		}
		cols := make([]arrow.Array, len(indices))
		for i, idx := range indices {
			cols[i] = sl.Column(idx)
		}
		out = append(out, array.NewRecordBatch(outSchema, cols, sl.NumRows()))
		sl.Release()
	}
	return out, outSchema
}
