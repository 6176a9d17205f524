// Package api exposes the extractor and the pipeline over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dodf/api/handler"
	"github.com/use-agent/dodf/api/middleware"
	"github.com/use-agent/dodf/config"
	"github.com/use-agent/dodf/extractor"
)

// Deps carries the services the routes are built on.
type Deps struct {
	Runs      *handler.RunStore
	Browsers  handler.BrowserCounter
	Extractor *extractor.Extractor
	Document  handler.DocumentDeps
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(deps.Runs, deps.Browsers, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/extract", handler.Extract(deps.Extractor))
	protected.POST("/runs", handler.PostRun(deps.Runs))
	protected.GET("/runs/:id", handler.GetRun(deps.Runs))
	protected.POST("/document", handler.Document(deps.Document))

	return r
}
