package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longview/internal/metrics"
)

// safeNewIPCReader wraps ipc.NewReader with panic recovery. The arrow IPC
// decoder panics on some malformed headers instead of returning an error,
// and a corrupt fragment must degrade the request rather than kill the
// process.
func safeNewIPCReader(r io.Reader, opts ...ipc.Option) (rdr *ipc.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rdr = nil
			err = fmt.Errorf("create IPC reader (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("ipc_header").Inc()
		}
	}()
	return ipc.NewReader(r, opts...)
}

func ipcSchema(path string, mem memory.Allocator) (*arrow.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := safeNewIPCReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, err
	}
	defer r.Release()
	return r.Schema(), nil
}

// ipcReadAll materializes every batch in one IPC stream file. Decoder
// panics mid-stream are converted to errors and any batches already
// retained are released before returning.
func ipcReadAll(path string, mem memory.Allocator) (recs []arrow.RecordBatch, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := safeNewIPCReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, err
	}
	defer r.Release()

	defer func() {
		if rec := recover(); rec != nil {
			releaseAll(recs)
			recs = nil
			err = fmt.Errorf("decode IPC batch (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("ipc_batch").Inc()
		}
	}()

	for r.Next() {
		rec := r.RecordBatch()
		rec.Retain()
		recs = append(recs, rec)
	}
	if rerr := r.Err(); rerr != nil {
		releaseAll(recs)
		return nil, fmt.Errorf("read IPC stream: %w", rerr)
	}
	return recs, nil
}

// ipcReadChunk reads the first batch only and slices it to at most n rows.
func ipcReadChunk(path string, mem memory.Allocator, n int) (recs []arrow.RecordBatch, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := safeNewIPCReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, err
	}
	defer r.Release()

	defer func() {
		if rec := recover(); rec != nil {
			releaseAll(recs)
			recs = nil
			err = fmt.Errorf("decode IPC batch (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("ipc_batch").Inc()
		}
	}()

	if !r.Next() {
		if rerr := r.Err(); rerr != nil {
			return nil, fmt.Errorf("read IPC stream: %w", rerr)
		}
		return nil, nil
	}

	rec := r.RecordBatch()
	if int64(n) < rec.NumRows() {
		sliced := rec.NewSlice(0, int64(n))
		return []arrow.RecordBatch{sliced}, nil
	}
	rec.Retain()
	return []arrow.RecordBatch{rec}, nil
}

func ipcCountRows(path string, mem memory.Allocator) (total int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r, err := safeNewIPCReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return 0, err
	}
	defer r.Release()

	defer func() {
		if rec := recover(); rec != nil {
			total = 0
			err = fmt.Errorf("decode IPC batch (possible corruption): %v", rec)
			metrics.DecodeErrorsTotal.WithLabelValues("ipc_batch").Inc()
		}
	}()

	for r.Next() {
		total += r.RecordBatch().NumRows()
	}
	if rerr := r.Err(); rerr != nil {
		return 0, fmt.Errorf("read IPC stream: %w", rerr)
	}
	return total, nil
}
