package catalog

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
)

// EmbeddingRow is the row shape the parquet fixture writer produces. The
// vector field serializes as a one-level repeated float leaf, which the
// reader maps back to a fixed-size list column.
type EmbeddingRow struct {
	ID     int64     `parquet:"id"`
	Label  string    `parquet:"label"`
	Vector []float32 `parquet:"vector"`
}

// WriteArrowFile writes batches to path in Arrow IPC stream format, the
// fragment layout List and Open expect for .arrow files.
func WriteArrowFile(path string, mem memory.Allocator, recs ...arrow.RecordBatch) error {
	if len(recs) == 0 {
		return fmt.Errorf("no batches to write")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := ipc.NewWriter(f, ipc.WithSchema(recs[0].Schema()), ipc.WithAllocator(mem))
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			w.Close()
			return fmt.Errorf("write IPC batch: %w", err)
		}
	}
	return w.Close()
}

// WriteParquetFile writes embedding rows to path as a Zstd-compressed
// parquet file.
func WriteParquetFile(path string, rows []EmbeddingRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[EmbeddingRow](f, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return pw.Close()
}
