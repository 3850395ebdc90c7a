// Package serialize converts Arrow column values into JSON-safe value trees.
// Conversion is total: a cell that cannot be converted yields an inline
// error marker instead of failing the surrounding row or page.
package serialize

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/23skdu/longview/internal/metrics"
)

// Cell converts the value at row of arr into a JSON-safe representation.
// A panic during conversion is absorbed and replaced by an error marker
// object, so one corrupt cell never takes down the page.
func Cell(arr arrow.Array, row int) (out any) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CellErrorsTotal.Inc()
			out = map[string]any{"error": fmt.Sprintf("serialization failed: %v", r)}
		}
	}()
	return cellValue(arr, row)
}

// cellValue dispatches on the closed arrow.Type tag set. Tags without an
// explicit case fall through to the array's own textual rendering.
func cellValue(arr arrow.Array, i int) any {
	if arr == nil || arr.IsNull(i) {
		return nil
	}

	dt := arr.DataType()
	switch dt.ID() {
	case arrow.NULL:
		return nil
	case arrow.BOOL:
		return arr.(*array.Boolean).Value(i)
	case arrow.INT8:
		return int64(arr.(*array.Int8).Value(i))
	case arrow.INT16:
		return int64(arr.(*array.Int16).Value(i))
	case arrow.INT32:
		return int64(arr.(*array.Int32).Value(i))
	case arrow.INT64:
		return arr.(*array.Int64).Value(i)
	case arrow.UINT8:
		return uint64(arr.(*array.Uint8).Value(i))
	case arrow.UINT16:
		return uint64(arr.(*array.Uint16).Value(i))
	case arrow.UINT32:
		return uint64(arr.(*array.Uint32).Value(i))
	case arrow.UINT64:
		return arr.(*array.Uint64).Value(i)
	case arrow.FLOAT16:
		return jsonFloat(float64(arr.(*array.Float16).Value(i).Float32()))
	case arrow.FLOAT32:
		return jsonFloat(float64(arr.(*array.Float32).Value(i)))
	case arrow.FLOAT64:
		return jsonFloat(arr.(*array.Float64).Value(i))
	case arrow.STRING:
		return arr.(*array.String).Value(i)
	case arrow.LARGE_STRING:
		return arr.(*array.LargeString).Value(i)
	case arrow.BINARY:
		return base64.StdEncoding.EncodeToString(arr.(*array.Binary).Value(i))
	case arrow.LARGE_BINARY:
		return base64.StdEncoding.EncodeToString(arr.(*array.LargeBinary).Value(i))
	case arrow.FIXED_SIZE_BINARY:
		return base64.StdEncoding.EncodeToString(arr.(*array.FixedSizeBinary).Value(i))
	case arrow.DATE32:
		return arr.(*array.Date32).Value(i).ToTime().Format("2006-01-02")
	case arrow.DATE64:
		return arr.(*array.Date64).Value(i).ToTime().Format("2006-01-02")
	case arrow.TIMESTAMP:
		return formatTimestamp(dt.(*arrow.TimestampType), arr.(*array.Timestamp).Value(i))
	case arrow.TIME32:
		t := arr.(*array.Time32).Value(i)
		return t.ToTime(dt.(*arrow.Time32Type).Unit).Format("15:04:05.999999999")
	case arrow.TIME64:
		t := arr.(*array.Time64).Value(i)
		return t.ToTime(dt.(*arrow.Time64Type).Unit).Format("15:04:05.999999999")
	case arrow.DURATION:
		v := arr.(*array.Duration).Value(i)
		return durationSeconds(dt.(*arrow.DurationType).Unit, int64(v))
	case arrow.LIST:
		a := arr.(*array.List)
		if isFloatID(dt.(*arrow.ListType).Elem().ID()) {
			return vectorSummaryAt(arr, i)
		}
		start, end := a.ValueOffsets(i)
		return rangeValues(a.ListValues(), start, end)
	case arrow.LARGE_LIST:
		a := arr.(*array.LargeList)
		start, end := a.ValueOffsets(i)
		return rangeValues(a.ListValues(), start, end)
	case arrow.FIXED_SIZE_LIST:
		a := arr.(*array.FixedSizeList)
		fsl := dt.(*arrow.FixedSizeListType)
		if isFloatID(fsl.Elem().ID()) {
			return vectorSummaryAt(arr, i)
		}
		n := int(fsl.Len())
		start := int64(a.Data().Offset()+i) * int64(n)
		return rangeValues(a.ListValues(), start, start+int64(n))
	case arrow.MAP:
		// Entries become [key, value] pairs; a JSON object would force
		// arbitrary key types through a string form and lose order.
		a := arr.(*array.Map)
		start, end := a.ValueOffsets(i)
		keys, items := a.Keys(), a.Items()
		pairs := make([]any, 0, end-start)
		for k := start; k < end; k++ {
			pairs = append(pairs, []any{cellValue(keys, int(k)), cellValue(items, int(k))})
		}
		return pairs
	case arrow.STRUCT:
		a := arr.(*array.Struct)
		st := dt.(*arrow.StructType)
		obj := make(map[string]any, a.NumField())
		for j := 0; j < a.NumField(); j++ {
			obj[st.Field(j).Name] = cellValue(a.Field(j), i)
		}
		return obj
	default:
		return arr.ValueStr(i)
	}
}

func rangeValues(values arrow.Array, start, end int64) []any {
	out := make([]any, 0, end-start)
	for k := start; k < end; k++ {
		out = append(out, cellValue(values, int(k)))
	}
	return out
}

func vectorSummaryAt(arr arrow.Array, i int) any {
	vals, ok := vectorAt(arr, i)
	if !ok {
		return map[string]any{"error": "invalid vector data"}
	}
	metrics.VectorSummariesTotal.Inc()
	return Summarize(vals)
}

// jsonFloat forces a value to double precision. NaN and infinities have no
// JSON representation and become null.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func formatTimestamp(dt *arrow.TimestampType, v arrow.Timestamp) string {
	t := v.ToTime(dt.Unit)
	if dt.TimeZone == "" {
		return t.Format("2006-01-02T15:04:05.999999999")
	}
	return t.UTC().Format("2006-01-02T15:04:05.999999999Z07:00")
}

func durationSeconds(unit arrow.TimeUnit, v int64) float64 {
	switch unit {
	case arrow.Second:
		return float64(v)
	case arrow.Millisecond:
		return float64(v) / 1e3
	case arrow.Microsecond:
		return float64(v) / 1e6
	default:
		return float64(v) / 1e9
	}
}

func isFloatID(id arrow.Type) bool {
	return id == arrow.FLOAT16 || id == arrow.FLOAT32 || id == arrow.FLOAT64
}
