// Package pool recycles bytes.Buffer instances for the row rendering hot
// path, where every row of every page marshals through one buffer.
package pool

import (
	"bytes"
	"sync"

	"github.com/23skdu/longview/internal/metrics"
)

// BytePool pools bytes.Buffer instances to reduce allocation pressure.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a new buffer pool.
func NewBytePool() *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

// Get retrieves a buffer from the pool.
// The buffer is guaranteed to be empty (Reset called).
func (p *BytePool) Get() *bytes.Buffer {
	metrics.BufferPoolOperationsTotal.WithLabelValues("get").Inc()
	return p.pool.Get().(*bytes.Buffer)
}

// Put returns a buffer to the pool after resetting it.
func (p *BytePool) Put(buf *bytes.Buffer) {
	metrics.BufferPoolOperationsTotal.WithLabelValues("put").Inc()
	buf.Reset()
	p.pool.Put(buf)
}

// Render runs fn with a pooled buffer and returns a copy of its contents.
// The copy is required: the buffer goes back to the pool on return, so its
// backing bytes must never escape to the caller.
func (p *BytePool) Render(fn func(*bytes.Buffer) error) ([]byte, error) {
	buf := p.Get()
	defer p.Put(buf)

	if err := fn(buf); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
