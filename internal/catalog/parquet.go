package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	"github.com/23skdu/longview/internal/metrics"
)

// colSpec maps one top-level parquet field onto an arrow column. Only flat
// schemas are supported: scalar leaves plus one-level repeated float leaves,
// which is the shape the embedding writers produce. Repeated float leaves
// become fixed-size list columns with the width taken from the first
// populated row.
type colSpec struct {
	name   string
	vector bool
	elem   parquet.Kind
	dt     arrow.DataType
}

const dimProbeRows = 64

func openParquet(path string) (*parquet.File, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open parquet file: %w", err)
	}
	return pf, f, nil
}

func parquetNumRows(path string) (int64, error) {
	pf, f, err := openParquet(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return pf.NumRows(), nil
}

func parquetSchema(path string) (s *arrow.Schema, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s = nil
			err = fmt.Errorf("decode parquet file (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("parquet").Inc()
		}
	}()

	pf, f, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	specs, err := parquetColumns(pf.Schema())
	if err != nil {
		return nil, err
	}
	rows, err := parquetRows(pf, dimProbeRows)
	if err != nil {
		return nil, err
	}
	resolveVectorDims(specs, rows)
	return arrowSchema(specs), nil
}

// parquetReadAll materializes the whole file as a single record batch.
func parquetReadAll(path string, mem memory.Allocator) (recs []arrow.RecordBatch, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			releaseAll(recs)
			recs = nil
			err = fmt.Errorf("decode parquet file (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("parquet").Inc()
		}
	}()

	pf, f, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parquetBatch(pf, mem, -1)
}

// parquetReadChunk reads at most n rows from the front of the file.
func parquetReadChunk(path string, mem memory.Allocator, n int) (recs []arrow.RecordBatch, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			releaseAll(recs)
			recs = nil
			err = fmt.Errorf("decode parquet file (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("parquet").Inc()
		}
	}()

	pf, f, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parquetBatch(pf, mem, n)
}

func parquetBatch(pf *parquet.File, mem memory.Allocator, limit int) ([]arrow.RecordBatch, error) {
	specs, err := parquetColumns(pf.Schema())
	if err != nil {
		return nil, err
	}
	rows, err := parquetRows(pf, limit)
	if err != nil {
		return nil, err
	}
	resolveVectorDims(specs, rows)

	schema := arrowSchema(specs)
	bld := array.NewRecordBuilder(mem, schema)
	defer bld.Release()

	scratch := make([]parquet.Value, 0, 16)
	for _, row := range rows {
		for slot, spec := range specs {
			scratch = scratch[:0]
			for _, v := range row {
				if v.Column() == slot {
					scratch = append(scratch, v)
				}
			}
			if err := appendValue(bld.Field(slot), spec, scratch); err != nil {
				return nil, err
			}
		}
	}

	rec := bld.NewRecordBatch()
	return []arrow.RecordBatch{rec}, nil
}

// parquetColumns validates the file schema and plans the arrow column for
// each field. Nested groups, maps and multi-level lists are rejected; the
// read then degrades at a higher layer.
func parquetColumns(s *parquet.Schema) ([]*colSpec, error) {
	fields := s.Fields()
	specs := make([]*colSpec, 0, len(fields))
	for _, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("unsupported parquet structure: field %q is not flat", field.Name())
		}
		kind := field.Type().Kind()
		if field.Repeated() {
			if kind != parquet.Float && kind != parquet.Double {
				return nil, fmt.Errorf("unsupported parquet structure: repeated field %q is not a float vector", field.Name())
			}
			specs = append(specs, &colSpec{name: field.Name(), vector: true, elem: kind})
			continue
		}
		dt, err := scalarArrowType(field.Type())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name(), err)
		}
		specs = append(specs, &colSpec{name: field.Name(), dt: dt})
	}
	return specs, nil
}

func scalarArrowType(typ parquet.Type) (arrow.DataType, error) {
	lt := typ.LogicalType()
	switch typ.Kind() {
	case parquet.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return arrow.FixedWidthTypes.Date32, nil
		}
		return arrow.PrimitiveTypes.Int32, nil
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			return timestampArrowType(lt.Timestamp.Unit.Millis != nil, lt.Timestamp.Unit.Nanos != nil, lt.Timestamp.IsAdjustedToUTC), nil
		}
		return arrow.PrimitiveTypes.Int64, nil
	case parquet.Float:
		return arrow.PrimitiveTypes.Float32, nil
	case parquet.Double:
		return arrow.PrimitiveTypes.Float64, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if lt != nil && lt.UTF8 != nil {
			return arrow.BinaryTypes.String, nil
		}
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, fmt.Errorf("unsupported parquet type %s", typ.Kind())
	}
}

func timestampArrowType(millis, nanos, utc bool) arrow.DataType {
	unit := arrow.Microsecond
	if millis {
		unit = arrow.Millisecond
	}
	if nanos {
		unit = arrow.Nanosecond
	}
	if utc {
		return &arrow.TimestampType{Unit: unit, TimeZone: "UTC"}
	}
	return &arrow.TimestampType{Unit: unit}
}

// resolveVectorDims fixes each vector column's width from the first row
// that actually carries values. Columns with no populated row in the sample
// fall back to width 1 and read as null.
func resolveVectorDims(specs []*colSpec, rows []parquet.Row) {
	for slot, spec := range specs {
		if !spec.vector || spec.dt != nil {
			continue
		}
		dim := 0
		for _, row := range rows {
			n := 0
			for _, v := range row {
				if v.Column() == slot && !v.IsNull() {
					n++
				}
			}
			if n > 0 {
				dim = n
				break
			}
		}
		if dim == 0 {
			dim = 1
		}
		elem := arrow.PrimitiveTypes.Float32
		if spec.elem == parquet.Double {
			elem = arrow.PrimitiveTypes.Float64
		}
		spec.dt = arrow.FixedSizeListOf(int32(dim), elem)
	}
}

func arrowSchema(specs []*colSpec) *arrow.Schema {
	fields := make([]arrow.Field, len(specs))
	for i, spec := range specs {
		fields[i] = arrow.Field{Name: spec.name, Type: spec.dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// parquetRows buffers up to limit rows (all rows when limit < 0) with
// values cloned out of the reader's reusable buffers.
func parquetRows(pf *parquet.File, limit int) ([]parquet.Row, error) {
	var out []parquet.Row
	buf := make([]parquet.Row, 64)
	for _, rg := range pf.RowGroups() {
		rr := rg.Rows()
		for {
			if limit >= 0 && len(out) >= limit {
				rr.Close()
				return out, nil
			}
			n, err := rr.ReadRows(buf)
			for i := 0; i < n; i++ {
				cp := make(parquet.Row, len(buf[i]))
				for j, v := range buf[i] {
					cp[j] = v.Clone()
				}
				out = append(out, cp)
				if limit >= 0 && len(out) >= limit {
					break
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rr.Close()
				return nil, fmt.Errorf("read parquet rows: %w", err)
			}
			if n == 0 {
				break
			}
		}
		rr.Close()
	}
	return out, nil
}

func appendValue(fb array.Builder, spec *colSpec, vs []parquet.Value) error {
	if spec.vector {
		return appendVector(fb, spec, vs)
	}
	if len(vs) == 0 || vs[0].IsNull() {
		fb.AppendNull()
		return nil
	}
	v := vs[0]
	switch b := fb.(type) {
	case *array.BooleanBuilder:
		b.Append(v.Boolean())
	case *array.Int32Builder:
		b.Append(v.Int32())
	case *array.Int64Builder:
		b.Append(v.Int64())
	case *array.Date32Builder:
		b.Append(arrow.Date32(v.Int32()))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.Int64()))
	case *array.Float32Builder:
		b.Append(v.Float())
	case *array.Float64Builder:
		b.Append(v.Double())
	case *array.StringBuilder:
		b.Append(string(v.ByteArray()))
	case *array.BinaryBuilder:
		b.Append(v.ByteArray())
	default:
		return fmt.Errorf("no builder for column %q", spec.name)
	}
	return nil
}

// appendVector appends one fixed-size list row. Rows whose value count does
// not match the column width, including empty rows, become null.
func appendVector(fb array.Builder, spec *colSpec, vs []parquet.Value) error {
	lb, ok := fb.(*array.FixedSizeListBuilder)
	if !ok {
		return fmt.Errorf("no builder for column %q", spec.name)
	}
	dim := int(spec.dt.(*arrow.FixedSizeListType).Len())

	populated := 0
	for _, v := range vs {
		if !v.IsNull() {
			populated++
		}
	}
	if populated != dim {
		lb.AppendNull()
		return nil
	}

	lb.Append(true)
	switch vb := lb.ValueBuilder().(type) {
	case *array.Float32Builder:
		for _, v := range vs {
			if !v.IsNull() {
				vb.Append(v.Float())
			}
		}
	case *array.Float64Builder:
		for _, v := range vs {
			if !v.IsNull() {
				vb.Append(v.Double())
			}
		}
	default:
		return fmt.Errorf("no builder for column %q", spec.name)
	}
	return nil
}
