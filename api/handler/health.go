package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dodf/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// BrowserCounter reports how many browsers are running.
type BrowserCounter interface {
	ActiveSessions() int
}

// Health returns a handler for GET /api/v1/health.
//
// Reports "busy" while a run is in progress; the server still accepts
// requests, but new runs queue behind it.
func Health(runs *RunStore, browsers BrowserCounter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := runs.Active()

		status := "healthy"
		if active > 0 {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			ActiveRuns:     active,
			ActiveBrowsers: browsers.ActiveSessions(),
			Version:        Version,
		})
	}
}
