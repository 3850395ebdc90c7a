// Package api assembles the read-only HTTP surface over the dataset
// catalog: listing, schema and column introspection, row paging, vector
// previews, and the static viewer assets.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/23skdu/longview/internal/limiter"
)

// NewRouter wires middleware, dataset routes and the static web viewer.
// An empty webRoot disables the static mount.
func NewRouter(h *Handler, rl *limiter.RateLimiter, logger zerolog.Logger, webRoot string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(logger))
	r.Use(CORS())
	r.Use(rl.Middleware())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/datasets", h.ListDatasets)
	r.GET("/datasets/:name/schema", h.DatasetSchema)
	r.GET("/datasets/:name/columns", h.DatasetColumns)
	r.GET("/datasets/:name/rows", h.DatasetRows)
	r.GET("/datasets/:name/vector/preview", h.VectorPreview)

	if webRoot != "" {
		r.NoRoute(staticFiles(webRoot))
	}
	return r
}

// staticFiles serves the viewer assets for any path no API route claims.
// Missing files 404 the way a plain file server does.
func staticFiles(root string) gin.HandlerFunc {
	fileServer := http.FileServer(http.Dir(root))
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
