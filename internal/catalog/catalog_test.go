package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lverrors "github.com/23skdu/longview/internal/errors"
)

func buildIDBatch(t *testing.T, mem memory.Allocator, ids []int64, labels []string) arrow.RecordBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "label", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(ids, nil)
	b.Field(1).(*array.StringBuilder).AppendValues(labels, nil)
	return b.NewRecordBatch()
}

func writeArrowDataset(t *testing.T, mem memory.Allocator, path string, ids []int64, labels []string) {
	t.Helper()
	rec := buildIDBatch(t, mem, ids, labels)
	defer rec.Release()
	require.NoError(t, WriteArrowFile(path, mem, rec))
}

func TestValidDatasetName(t *testing.T) {
	valid := []string{"a", "embeddings", "data_2024", "x-y", strings.Repeat("z", 100)}
	for _, name := range valid {
		assert.True(t, ValidDatasetName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", ".hidden", "a b", "a/b", "..", "café", strings.Repeat("z", 101)}
	for _, name := range invalid {
		assert.False(t, ValidDatasetName(name), "expected %q to be invalid", name)
	}
}

func TestListDatasets(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	root := t.TempDir()
	writeArrowDataset(t, mem, filepath.Join(root, "alpha.arrow"), []int64{1}, []string{"a"})
	require.NoError(t, WriteParquetFile(filepath.Join(root, "beta.parquet"), []EmbeddingRow{
		{ID: 1, Label: "b", Vector: []float32{0.1, 0.2}},
	}))

	gammaDir := filepath.Join(root, "gamma")
	require.NoError(t, os.MkdirAll(gammaDir, 0o755))
	writeArrowDataset(t, mem, filepath.Join(gammaDir, "part-000.arrow"), []int64{2}, []string{"g"})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty_dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.arrow"), []byte{0}, 0o644))

	c := New(root, mem, zerolog.Nop())
	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestListMissingRoot(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope"), memory.NewGoAllocator(), zerolog.Nop())
	_, err := c.List()
	require.Error(t, err)
	assert.Equal(t, lverrors.ClassBackend, lverrors.ClassOf(err))
	assert.Equal(t, "data path not found", lverrors.MessageOf(err))
}

func TestOpenRejectsBadNames(t *testing.T) {
	c := New(t.TempDir(), memory.NewGoAllocator(), zerolog.Nop())
	for _, name := range []string{"", "../etc", "a b", ".hidden"} {
		_, err := c.Open(name)
		require.Error(t, err, "name %q", name)
		assert.Equal(t, lverrors.ClassPrecondition, lverrors.ClassOf(err))
	}
}

func TestOpenUnknownDataset(t *testing.T) {
	c := New(t.TempDir(), memory.NewGoAllocator(), zerolog.Nop())
	_, err := c.Open("missing")
	require.Error(t, err)
	assert.Equal(t, lverrors.ClassNotFound, lverrors.ClassOf(err))
	assert.Equal(t, "dataset not found", lverrors.MessageOf(err))
}

func TestOpenMissingRoot(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope"), memory.NewGoAllocator(), zerolog.Nop())
	_, err := c.Open("whatever")
	require.Error(t, err)
	assert.Equal(t, lverrors.ClassBackend, lverrors.ClassOf(err))
}

func TestOpenPrefersDirectoryOverFile(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	root := t.TempDir()
	dir := filepath.Join(root, "dual")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeArrowDataset(t, mem, filepath.Join(dir, "frag.arrow"), []int64{10, 11}, []string{"d", "d"})
	writeArrowDataset(t, mem, filepath.Join(root, "dual.arrow"), []int64{99}, []string{"f"})

	c := New(root, mem, zerolog.Nop())
	ds, err := c.Open("dual")
	require.NoError(t, err)
	defer ds.Release()

	n, err := ds.NumRows()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
