package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// APIError is returned for any non-200 response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// newAPIError builds an APIError from a response body. The server reports
// failures as {"error": "..."}; anything else falls back to the status text.
func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &APIError{Status: status, Message: envelope.Error}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}

// AsAPIError checks if an error carries an API status.
// If success, returns the typed error, otherwise nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsNotFound reports whether an error is a 404 from the server.
func IsNotFound(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.Status == http.StatusNotFound
}
