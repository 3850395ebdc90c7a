package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/23skdu/longview/internal/catalog"
	lverrors "github.com/23skdu/longview/internal/errors"
	"github.com/23skdu/longview/internal/reader"
	"github.com/23skdu/longview/internal/serialize"
)

// Options carries the request limits and identity the handlers serve with.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	PreviewLimit int
	Version      string
}

// Handler owns the dataset endpoints.
type Handler struct {
	catalog *catalog.Catalog
	reader  *reader.Reader
	opts    Options
	logger  zerolog.Logger
}

func NewHandler(cat *catalog.Catalog, rdr *reader.Reader, logger zerolog.Logger, opts Options) *Handler {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 200
	}
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = 100
	}
	return &Handler{catalog: cat, reader: rdr, opts: opts, logger: logger}
}

func (h *Handler) Health(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"ok": true, "version": h.opts.Version})
}

func (h *Handler) ListDatasets(c *gin.Context) {
	names, err := h.catalog.List()
	if err != nil {
		h.fail(c, "list datasets", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(c, http.StatusOK, gin.H{"datasets": names})
}

func (h *Handler) DatasetSchema(c *gin.Context) {
	ds, ok := h.open(c)
	if !ok {
		return
	}
	defer ds.Release()

	schema, err := ds.Schema()
	if err != nil {
		h.fail(c, "dataset schema", lverrors.Wrap(err, lverrors.ClassInternal, "schema", "failed to get dataset schema"))
		return
	}

	fields := make([]gin.H, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		fi := gin.H{"name": f.Name, "type": f.Type.String(), "nullable": f.Nullable}
		if dim, isVec := serialize.VectorDim(f.Type); isVec {
			fi["vector_dim"] = optionalDim(dim)
		}
		fields = append(fields, fi)
	}
	writeJSON(c, http.StatusOK, gin.H{"fields": fields, "metadata": schemaMetadata(schema)})
}

func (h *Handler) DatasetColumns(c *gin.Context) {
	ds, ok := h.open(c)
	if !ok {
		return
	}
	defer ds.Release()

	schema, err := ds.Schema()
	if err != nil {
		h.fail(c, "dataset columns", lverrors.Wrap(err, lverrors.ClassInternal, "columns", "failed to get dataset columns"))
		return
	}

	columns := make([]gin.H, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		ci := gin.H{"name": f.Name, "type": f.Type.String(), "nullable": f.Nullable}
		if dim, isVec := serialize.VectorDim(f.Type); isVec {
			ci["is_vector"] = true
			ci["dim"] = optionalDim(dim)
		} else {
			ci["is_vector"] = false
		}
		columns = append(columns, ci)
	}
	writeJSON(c, http.StatusOK, gin.H{"columns": columns})
}

func (h *Handler) DatasetRows(c *gin.Context) {
	limit, err := queryInt(c, "limit", h.opts.DefaultLimit)
	if err != nil || limit < 1 || limit > h.opts.MaxLimit {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", h.opts.MaxLimit)})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}
	columns := splitColumns(c.Query("columns"))

	ds, ok := h.open(c)
	if !ok {
		return
	}
	defer ds.Release()

	w, err := h.reader.ReadWindow(c.Request.Context(), ds, columns, offset, limit)
	if err != nil {
		h.fail(c, "dataset rows", err)
		return
	}
	defer w.Release()

	writeJSON(c, http.StatusOK, reader.BuildPage(w, columns, limit, offset))
}

type vectorPreviewResponse struct {
	Stats   *serialize.BatchStats     `json:"stats"`
	Preview []serialize.VectorPreview `json:"preview"`
}

func (h *Handler) VectorPreview(c *gin.Context) {
	column := c.Query("column")
	if column == "" {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "column parameter is required"})
		return
	}
	limit, err := queryInt(c, "limit", h.opts.PreviewLimit)
	if err != nil || limit < 1 || limit > h.opts.MaxLimit {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", h.opts.MaxLimit)})
		return
	}

	ds, ok := h.open(c)
	if !ok {
		return
	}
	defer ds.Release()

	empty := vectorPreviewResponse{Preview: []serialize.VectorPreview{}}

	schema, err := ds.Schema()
	if err != nil {
		// the dataset is unreadable; preview degrades to nothing
		h.logger.Warn().Err(err).Str("dataset", ds.Name()).Msg("vector preview could not read schema")
		writeJSON(c, http.StatusOK, empty)
		return
	}
	idx := schema.FieldIndices(column)
	if len(idx) == 0 {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": fmt.Sprintf("column %q not found", column)})
		return
	}
	if _, isVec := serialize.VectorDim(schema.Field(idx[0]).Type); !isVec {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": fmt.Sprintf("column %q is not a vector column", column)})
		return
	}

	if n, err := ds.NumRows(); err == nil && n == 0 {
		writeJSON(c, http.StatusOK, empty)
		return
	}

	w, err := h.reader.ReadWindow(c.Request.Context(), ds, []string{column}, 0, limit)
	if err != nil {
		h.fail(c, "vector preview", err)
		return
	}
	defer w.Release()

	var vectors [][]float64
	for _, rec := range w.Records {
		if rec.NumCols() == 0 {
			continue
		}
		if vs, isVec := serialize.VectorColumn(rec.Column(0)); isVec {
			vectors = append(vectors, vs...)
		}
	}
	stats, preview := serialize.BatchPreview(vectors)
	writeJSON(c, http.StatusOK, vectorPreviewResponse{Stats: stats, Preview: preview})
}

// open resolves the dataset named in the route, writing the error response
// itself when resolution fails.
func (h *Handler) open(c *gin.Context) (*catalog.Dataset, bool) {
	ds, err := h.catalog.Open(c.Param("name"))
	if err != nil {
		h.fail(c, "open dataset", err)
		return nil, false
	}
	return ds, true
}

// fail maps the error taxonomy onto HTTP statuses: caller mistakes to 400,
// unknown datasets to 404, everything else to 500.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch lverrors.ClassOf(err) {
	case lverrors.ClassPrecondition:
		status = http.StatusBadRequest
	case lverrors.ClassNotFound:
		status = http.StatusNotFound
	}

	evt := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = h.logger.Error()
	}
	evt.Err(err).Str("op", op).Int("status", status).Msg("request failed")

	writeJSON(c, status, gin.H{"error": lverrors.MessageOf(err)})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func splitColumns(raw string) []string {
	if raw == "" {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

func optionalDim(dim int) any {
	if dim > 0 {
		return dim
	}
	return nil
}

func schemaMetadata(schema *arrow.Schema) gin.H {
	md := gin.H{}
	keys := schema.Metadata().Keys()
	vals := schema.Metadata().Values()
	for i, k := range keys {
		md[k] = vals[i]
	}
	return md
}
