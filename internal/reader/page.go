package reader

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/23skdu/longview/internal/pool"
	"github.com/23skdu/longview/internal/serialize"
)

// Pair is one named cell in a result row.
type Pair struct {
	Key   string
	Value any
}

// Row is an ordered list of cells. It marshals as a JSON object whose
// keys appear in column order, which map-backed rows would not keep.
type Row []Pair

var renderBuffers = pool.NewBytePool()

func (r Row) MarshalJSON() ([]byte, error) {
	return renderBuffers.Render(func(buf *bytes.Buffer) error {
		buf.WriteByte('{')
		for i, p := range r {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			v, err := json.Marshal(p.Value)
			if err != nil {
				return err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
		return nil
	})
}

// Page is one rows response: the serialized window plus the paging echo.
// Total counts the rows the read tier established, not the page length.
type Page struct {
	Rows   []Row `json:"rows"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// BuildPage maps every cell of the window through the type dispatcher and
// assembles the response page. columns only affects degraded windows,
// where it narrows the synthetic row; real records arrive already
// projected.
func BuildPage(w *Window, columns []string, limit, offset int) *Page {
	var rows []Row
	switch w.Tier {
	case TierSchemaOnly, TierFailure:
		rows = syntheticRows(w.Synthetic, columns)
	default:
		rows = recordRows(w)
	}
	if rows == nil {
		rows = []Row{}
	}
	return &Page{Rows: rows, Total: w.Total, Limit: limit, Offset: offset}
}

func recordRows(w *Window) []Row {
	var rows []Row
	for _, rec := range w.Records {
		fields := rec.Schema().Fields()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(Row, len(fields))
			for j, f := range fields {
				row[j] = Pair{Key: f.Name, Value: serialize.Cell(rec.Column(j), i)}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// syntheticRows renders diagnostic rows, keeping only the requested subset
// of the synthetic columns. A projection that matches none of them keeps
// both rather than returning empty objects.
func syntheticRows(syn []SyntheticRow, columns []string) []Row {
	includeStatus, includeMessage := true, true
	if len(columns) > 0 {
		includeStatus, includeMessage = false, false
		for _, c := range columns {
			switch c {
			case "status":
				includeStatus = true
			case "message":
				includeMessage = true
			}
		}
		if !includeStatus && !includeMessage {
			includeStatus, includeMessage = true, true
		}
	}

	rows := make([]Row, 0, len(syn))
	for _, s := range syn {
		var row Row
		if includeStatus {
			row = append(row, Pair{Key: "status", Value: s.Status})
		}
		if includeMessage {
			row = append(row, Pair{Key: "message", Value: s.Message})
		}
		rows = append(rows, row)
	}
	return rows
}
