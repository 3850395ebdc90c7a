package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longview/internal/breaker"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL)
	c.retryWait = time.Millisecond
	return c
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"version":"1.2.3"}`))
	}))
	defer srv.Close()

	status, err := newTestClient(srv).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK)
	assert.Equal(t, "1.2.3", status.Version)
}

func TestClientListDatasets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets", r.URL.Path)
		_, _ = w.Write([]byte(`{"datasets":["embeddings","pets"]}`))
	}))
	defer srv.Close()

	names, err := newTestClient(srv).ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"embeddings", "pets"}, names)
}

func TestClientGetRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets/pets/rows", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		assert.Equal(t, "id,label", r.URL.Query().Get("columns"))
		_, _ = w.Write([]byte(`{"rows":[{"id":11,"label":"cat"}],"total":42,"limit":5,"offset":10}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv).GetRows(context.Background(), "pets", RowsQuery{
		Columns: []string{"id", "label"},
		Limit:   5,
		Offset:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 10, page.Offset)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, float64(11), page.Rows[0]["id"])
	assert.Equal(t, "cat", page.Rows[0]["label"])
}

func TestClientGetVectorPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets/embeddings/vector/preview", r.URL.Path)
		assert.Equal(t, "vector", r.URL.Query().Get("column"))
		_, _ = w.Write([]byte(`{"stats":{"count":2,"dim":4,"min":0.1,"max":0.8,"mean":0.45},"preview":[{"norm":1.0,"sample":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).GetVectorPreview(context.Background(), "embeddings", "vector", 0)
	require.NoError(t, err)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 2, res.Stats.Count)
	assert.Equal(t, 4, res.Stats.Dim)
	require.Len(t, res.Preview, 1)
	assert.InDelta(t, 1.0, res.Preview[0].Norm, 1e-9)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"datasets":[]}`))
	}))
	defer srv.Close()

	names, err := newTestClient(srv).ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"data path not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListDatasets(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	apiErr := AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "data path not found", apiErr.Message)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"dataset not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetSchema(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, IsNotFound(err))
	apiErr := AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, "dataset not found", apiErr.Message)
}

func TestClientErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListDatasets(context.Background())
	apiErr := AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, http.StatusText(http.StatusBadRequest), apiErr.Message)
}

func TestClientCircuitBreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"data path unreadable"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)

	_, err := c.ListDatasets(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	// Three straight failures opened the circuit; the next call must not
	// reach the server.
	_, err = c.ListDatasets(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientCircuitBreakerRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"datasets":["events"]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.circuit = breaker.New(breaker.Config{Threshold: 3, Cooldown: 20 * time.Millisecond})

	_, err := c.ListDatasets(context.Background())
	require.Error(t, err)

	time.Sleep(50 * time.Millisecond)

	names, err := c.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, names)
}
