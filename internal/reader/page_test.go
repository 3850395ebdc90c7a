package reader

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowMarshalPreservesOrder(t *testing.T) {
	row := Row{
		{Key: "zeta", Value: 1},
		{Key: "alpha", Value: "x"},
		{Key: "mid", Value: nil},
	}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"x","mid":null}`, string(b))
}

func TestBuildPageSerializesRecords(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := buildRows(t, mem, []int64{7, 8})
	w := &Window{Tier: TierFull, Schema: rec.Schema(), Records: []arrow.RecordBatch{rec}, Total: 2}
	defer w.Release()

	page := BuildPage(w, nil, 50, 0)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 0, page.Offset)

	b, err := json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"rows":[{"id":7,"label":"row-7"},{"id":8,"label":"row-8"}]`)
}

func TestBuildPageEmptyWindow(t *testing.T) {
	w := &Window{Tier: TierFull, Total: 120}
	page := BuildPage(w, nil, 50, 200)

	b, err := json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"rows":[]`)
	assert.Contains(t, string(b), `"total":120`)
	assert.Contains(t, string(b), `"offset":200`)
}

func TestBuildPageSyntheticRows(t *testing.T) {
	w := &Window{
		Tier:      TierFailure,
		Synthetic: []SyntheticRow{{Status: "error", Message: "boom"}},
		Total:     1,
	}

	page := BuildPage(w, nil, 50, 0)
	require.Len(t, page.Rows, 1)
	b, err := json.Marshal(page.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"status":"error","message":"boom"}`, string(b))

	// projection keeps the requested synthetic column only
	page = BuildPage(w, []string{"message"}, 50, 0)
	require.Len(t, page.Rows, 1)
	b, err = json.Marshal(page.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"message":"boom"}`, string(b))

	// a projection matching nothing keeps the whole diagnostic
	page = BuildPage(w, []string{"id"}, 50, 0)
	require.Len(t, page.Rows, 1)
	b, err = json.Marshal(page.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"status":"error","message":"boom"}`, string(b))
}

func TestBuildPageFromDegradedWindow(t *testing.T) {
	w := &Window{Tier: TierSchemaOnly, Total: 1}
	page := BuildPage(w, nil, 50, 3)
	assert.Empty(t, page.Rows)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 3, page.Offset)
}
