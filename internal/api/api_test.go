package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longview/internal/catalog"
	"github.com/23skdu/longview/internal/limiter"
	"github.com/23skdu/longview/internal/reader"
)

func newTestServer(t *testing.T, root string) *gin.Engine {
	t.Helper()
	cat := catalog.New(root, memory.NewGoAllocator(), zerolog.Nop())
	rdr := reader.New(zerolog.Nop(), 0)
	h := NewHandler(cat, rdr, zerolog.Nop(), Options{Version: "test"})
	return NewRouter(h, limiter.NewRateLimiter(limiter.Config{}), zerolog.Nop(), "")
}

func seedFixtures(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mem := memory.NewGoAllocator()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "label", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	for i := 1; i <= 5; i++ {
		b.Field(0).(*array.Int64Builder).Append(int64(i))
		b.Field(1).(*array.StringBuilder).Append(fmt.Sprintf("pet-%d", i))
	}
	rec := b.NewRecordBatch()
	b.Release()
	require.NoError(t, catalog.WriteArrowFile(filepath.Join(root, "pets.arrow"), mem, rec))
	rec.Release()

	require.NoError(t, catalog.WriteParquetFile(filepath.Join(root, "embeddings.parquet"), []catalog.EmbeddingRow{
		{ID: 1, Label: "cat", Vector: []float32{0.1, 0.2, 0.3, 0.4}},
		{ID: 2, Label: "dog", Vector: []float32{0.5, 0.6, 0.7, 0.8}},
	}))

	require.NoError(t, os.WriteFile(filepath.Join(root, "junk.arrow"), []byte("definitely not arrow"), 0o644))
	return root
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), "body: %s", w.Body.String())
	return m
}

func TestHealthz(t *testing.T) {
	r := newTestServer(t, t.TempDir())
	w := get(t, r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "test", body["version"])
}

func TestListDatasets(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"embeddings", "junk", "pets"}, body["datasets"])
}

func TestListDatasetsMissingRoot(t *testing.T) {
	r := newTestServer(t, filepath.Join(t.TempDir(), "nope"))
	w := get(t, r, "/datasets")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "data path not found", decode(t, w)["error"])
}

func TestDatasetSchema(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets/embeddings/schema")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	fields, ok := body["fields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 3)

	byName := map[string]map[string]any{}
	for _, f := range fields {
		fm := f.(map[string]any)
		byName[fm["name"].(string)] = fm
	}
	require.Contains(t, byName, "vector")
	assert.Equal(t, float64(4), byName["vector"]["vector_dim"])
	assert.NotContains(t, byName["id"], "vector_dim")
}

func TestDatasetSchemaErrors(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))

	w := get(t, r, "/datasets/missing/schema")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "dataset not found", decode(t, w)["error"])

	w = get(t, r, "/datasets/bad..name/schema")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid dataset name", decode(t, w)["error"])
}

func TestDatasetColumns(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets/embeddings/columns")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	columns, ok := body["columns"].([]any)
	require.True(t, ok)
	require.Len(t, columns, 3)

	byName := map[string]map[string]any{}
	for _, cI := range columns {
		cm := cI.(map[string]any)
		byName[cm["name"].(string)] = cm
	}
	assert.Equal(t, true, byName["vector"]["is_vector"])
	assert.Equal(t, float64(4), byName["vector"]["dim"])
	assert.Equal(t, false, byName["label"]["is_vector"])
}

func TestDatasetRows(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets/pets/rows?limit=2&offset=1")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(5), body["total"])
	assert.Equal(t, float64(2), body["limit"])
	assert.Equal(t, float64(1), body["offset"])

	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, float64(2), first["id"])
	assert.Equal(t, "pet-2", first["label"])

	// keys come out in column order
	assert.Contains(t, w.Body.String(), `{"id":2,"label":"pet-2"}`)
}

func TestDatasetRowsValidation(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))

	for _, path := range []string{
		"/datasets/pets/rows?limit=0",
		"/datasets/pets/rows?limit=201",
		"/datasets/pets/rows?limit=abc",
	} {
		w := get(t, r, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, decode(t, w)["error"], "limit must be between", path)
	}

	w := get(t, r, "/datasets/pets/rows?offset=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "offset must not be negative", decode(t, w)["error"])

	w = get(t, r, "/datasets/pets/rows?columns=id,nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "invalid columns: nope")
}

func TestDatasetRowsProjection(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets/pets/rows?columns=label&limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	rows := decode(t, w)["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Contains(t, row, "label")
	assert.NotContains(t, row, "id")
}

func TestDatasetRowsDegradeToFailureRow(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets/junk/rows")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "error", row["status"])
	assert.Contains(t, row["message"], "failed to read dataset")
}

func TestVectorPreview(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))
	w := get(t, r, "/datasets/embeddings/vector/preview?column=vector")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok, "stats should be present: %s", w.Body.String())
	assert.Equal(t, float64(2), stats["count"])
	assert.Equal(t, float64(4), stats["dim"])
	assert.InDelta(t, 0.1, stats["min"].(float64), 1e-6)
	assert.InDelta(t, 0.8, stats["max"].(float64), 1e-6)

	preview := body["preview"].([]any)
	require.Len(t, preview, 2)
	sample := preview[0].(map[string]any)["sample"].([]any)
	assert.Len(t, sample, 4)
}

func TestVectorPreviewValidation(t *testing.T) {
	r := newTestServer(t, seedFixtures(t))

	w := get(t, r, "/datasets/embeddings/vector/preview")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "column parameter is required", decode(t, w)["error"])

	w = get(t, r, "/datasets/embeddings/vector/preview?column=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "not found")

	w = get(t, r, "/datasets/embeddings/vector/preview?column=label")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "not a vector column")

	w = get(t, r, "/datasets/embeddings/vector/preview?column=vector&limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVectorPreviewEmptyDataset(t *testing.T) {
	root := seedFixtures(t)
	mem := memory.NewGoAllocator()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "vector", Type: arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float32), Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	rec := b.NewRecordBatch()
	b.Release()
	require.NoError(t, catalog.WriteArrowFile(filepath.Join(root, "empty.arrow"), mem, rec))
	rec.Release()

	r := newTestServer(t, root)
	w := get(t, r, "/datasets/empty/vector/preview?column=vector")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Nil(t, body["stats"])
	assert.Equal(t, []any{}, body["preview"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestServer(t, t.TempDir())
	w := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "longview_")
}

func TestRateLimitedRouter(t *testing.T) {
	cat := catalog.New(t.TempDir(), memory.NewGoAllocator(), zerolog.Nop())
	rdr := reader.New(zerolog.Nop(), 0)
	h := NewHandler(cat, rdr, zerolog.Nop(), Options{Version: "test"})
	r := NewRouter(h, limiter.NewRateLimiter(limiter.Config{RPS: 1, Burst: 1}), zerolog.Nop(), "")

	w := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	w = get(t, r, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSAndRequestID(t *testing.T) {
	r := newTestServer(t, t.TempDir())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/datasets", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(t, r, "/healthz")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestStaticViewer(t *testing.T) {
	webRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webRoot, "index.html"), []byte("<html><body>viewer</body></html>"), 0o644))

	cat := catalog.New(t.TempDir(), memory.NewGoAllocator(), zerolog.Nop())
	rdr := reader.New(zerolog.Nop(), 0)
	h := NewHandler(cat, rdr, zerolog.Nop(), Options{Version: "test"})
	r := NewRouter(h, limiter.NewRateLimiter(limiter.Config{}), zerolog.Nop(), webRoot)

	w := get(t, r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewer")

	w = get(t, r, "/missing.js")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
