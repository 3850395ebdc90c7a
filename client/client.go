package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/23skdu/longview/internal/breaker"
)

// Client is a small REST client for the longview dataset API. Responses
// with 5xx status codes are retried a fixed number of times, and a
// circuit breaker fails calls fast while the server keeps erroring.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	retryWait   time.Duration
	circuit     *breaker.Breaker
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 3,
		retryWait:   100 * time.Millisecond,
		circuit:     breaker.New(breaker.Config{Threshold: 3, Cooldown: 5 * time.Second}),
	}
}

// HealthStatus is the /healthz response.
type HealthStatus struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// Field describes one schema field.
type Field struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Nullable  bool   `json:"nullable"`
	VectorDim *int   `json:"vector_dim,omitempty"`
}

// Schema is the /datasets/{name}/schema response.
type Schema struct {
	Fields   []Field           `json:"fields"`
	Metadata map[string]string `json:"metadata"`
}

// Column describes one column summary.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	IsVector bool   `json:"is_vector"`
	Dim      *int   `json:"dim"`
}

// RowsQuery narrows a rows request.
type RowsQuery struct {
	Columns []string
	Limit   int
	Offset  int
}

// RowsPage is the /datasets/{name}/rows response.
type RowsPage struct {
	Rows   []map[string]any `json:"rows"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// VectorStats aggregates scalar statistics over every vector in the batch.
type VectorStats struct {
	Count int     `json:"count"`
	Dim   int     `json:"dim"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// VectorSample is one previewed vector.
type VectorSample struct {
	Norm   float64   `json:"norm"`
	Sample []float64 `json:"sample"`
}

// VectorPreviewResult is the /datasets/{name}/vector/preview response.
type VectorPreviewResult struct {
	Stats   *VectorStats   `json:"stats"`
	Preview []VectorSample `json:"preview"`
}

// Health reports server liveness and version.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.getJSON(ctx, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDatasets returns the names of all datasets the server exposes.
func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	var out struct {
		Datasets []string `json:"datasets"`
	}
	if err := c.getJSON(ctx, "/datasets", nil, &out); err != nil {
		return nil, err
	}
	return out.Datasets, nil
}

// GetSchema returns the full schema of a dataset.
func (c *Client) GetSchema(ctx context.Context, dataset string) (*Schema, error) {
	var out Schema
	if err := c.getJSON(ctx, "/datasets/"+url.PathEscape(dataset)+"/schema", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetColumns returns the column summaries of a dataset.
func (c *Client) GetColumns(ctx context.Context, dataset string) ([]Column, error) {
	var out struct {
		Columns []Column `json:"columns"`
	}
	if err := c.getJSON(ctx, "/datasets/"+url.PathEscape(dataset)+"/columns", nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

// GetRows returns a window of rows from a dataset.
func (c *Client) GetRows(ctx context.Context, dataset string, q RowsQuery) (*RowsPage, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}
	if len(q.Columns) > 0 {
		query.Set("columns", strings.Join(q.Columns, ","))
	}

	var out RowsPage
	if err := c.getJSON(ctx, "/datasets/"+url.PathEscape(dataset)+"/rows", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVectorPreview returns statistics and samples for a vector column.
func (c *Client) GetVectorPreview(ctx context.Context, dataset, column string, limit int) (*VectorPreviewResult, error) {
	query := url.Values{}
	query.Set("column", column)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out VectorPreviewResult
	if err := c.getJSON(ctx, "/datasets/"+url.PathEscape(dataset)+"/vector/preview", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs a GET and decodes the JSON response into out. Server
// errors are retried up to maxAttempts times; client errors are returned
// immediately as *APIError. Transport failures and 5xx responses feed the
// circuit breaker, so a server that keeps erroring is cut off without
// further requests until the breaker's cooldown passes.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryWait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}

		if err := c.circuit.Allow(); err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.circuit.Record(false)
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			c.circuit.Record(false)
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			c.circuit.Record(true)
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response from %s: %w", path, err)
			}
			return nil
		case resp.StatusCode >= 500:
			c.circuit.Record(false)
			lastErr = newAPIError(resp.StatusCode, body)
			continue
		default:
			// The server answered; a 4xx is not a server health problem.
			c.circuit.Record(true)
			return newAPIError(resp.StatusCode, body)
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}
