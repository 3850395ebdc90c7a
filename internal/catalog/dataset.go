package catalog

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
)

type fragKind int

const (
	fragArrow fragKind = iota
	fragParquet
)

type fragment struct {
	path string
	kind fragKind
}

// Dataset is a single-request read handle over one dataset's fragments.
// It is not safe for concurrent use and must not outlive its request;
// Release frees every batch the handle materialized.
type Dataset struct {
	name   string
	frags  []fragment
	mem    memory.Allocator
	logger zerolog.Logger

	schema *arrow.Schema

	retained []arrow.RecordBatch
}

func (d *Dataset) Name() string { return d.name }

// Schema reads the dataset schema from the first fragment without
// materializing rows. A successful read is memoized for the life of the
// handle; the schema is consulted more than once per request.
func (d *Dataset) Schema() (*arrow.Schema, error) {
	if d.schema != nil {
		return d.schema, nil
	}
	if len(d.frags) == 0 {
		return nil, fmt.Errorf("dataset %s has no fragments", d.name)
	}
	frag := d.frags[0]

	var (
		s   *arrow.Schema
		err error
	)
	switch frag.kind {
	case fragParquet:
		s, err = parquetSchema(frag.path)
	default:
		s, err = ipcSchema(frag.path, d.mem)
	}
	if err != nil {
		return nil, err
	}
	d.schema = s
	return s, nil
}

// NumRows counts rows across all fragments. Parquet fragments answer from
// the file footer; IPC fragments require a batch scan.
func (d *Dataset) NumRows() (int64, error) {
	var total int64
	for _, frag := range d.frags {
		var (
			n   int64
			err error
		)
		switch frag.kind {
		case fragParquet:
			n, err = parquetNumRows(frag.path)
		default:
			n, err = ipcCountRows(frag.path, d.mem)
		}
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ReadAll materializes the whole dataset, fragment by fragment. Fragments
// must agree on schema; a mismatch is treated as content corruption and
// fails the read.
func (d *Dataset) ReadAll(ctx context.Context) ([]arrow.RecordBatch, error) {
	var all []arrow.RecordBatch
	for _, frag := range d.frags {
		if err := ctx.Err(); err != nil {
			releaseAll(all)
			return nil, err
		}

		var (
			recs []arrow.RecordBatch
			err  error
		)
		switch frag.kind {
		case fragParquet:
			recs, err = parquetReadAll(frag.path, d.mem)
		default:
			recs, err = ipcReadAll(frag.path, d.mem)
		}
		if err != nil {
			releaseAll(all)
			return nil, fmt.Errorf("read fragment %s: %w", frag.path, err)
		}
		all = append(all, recs...)
	}

	for _, rec := range all {
		if !rec.Schema().Equal(all[0].Schema()) {
			releaseAll(all)
			return nil, fmt.Errorf("dataset %s: fragment schemas do not match", d.name)
		}
	}

	d.retained = append(d.retained, all...)
	return all, nil
}

// ReadChunk reads at most n rows from the first fragment that yields any,
// for degraded paging when full materialization fails.
func (d *Dataset) ReadChunk(ctx context.Context, n int) ([]arrow.RecordBatch, error) {
	var lastErr error
	for _, frag := range d.frags {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			recs []arrow.RecordBatch
			err  error
		)
		switch frag.kind {
		case fragParquet:
			recs, err = parquetReadChunk(frag.path, d.mem, n)
		default:
			recs, err = ipcReadChunk(frag.path, d.mem, n)
		}
		if err != nil {
			lastErr = err
			d.logger.Warn().Err(err).Str("fragment", frag.path).Msg("chunk read failed, trying next fragment")
			continue
		}
		d.retained = append(d.retained, recs...)
		return recs, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dataset %s has no fragments", d.name)
	}
	return nil, lastErr
}

// Release frees every batch this handle materialized.
func (d *Dataset) Release() {
	releaseAll(d.retained)
	d.retained = nil
}

func releaseAll(recs []arrow.RecordBatch) {
	for _, rec := range recs {
		rec.Release()
	}
}
