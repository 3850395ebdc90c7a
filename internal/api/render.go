package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
)

const jsonContentType = "application/json; charset=utf-8"

// writeJSON renders v through the same encoder the rest of the codebase
// serializes with, so ordered row objects come out in column order.
func writeJSON(c *gin.Context, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "response encoding failed"})
		return
	}
	c.Data(code, jsonContentType, b)
}
