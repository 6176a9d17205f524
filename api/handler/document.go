package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dodf/cache"
	"github.com/use-agent/dodf/cleaner"
	"github.com/use-agent/dodf/engine"
	"github.com/use-agent/dodf/extractor"
	"github.com/use-agent/dodf/models"
)

// Dispatcher fetches one document.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// DocumentDeps groups what the document preview needs.
type DocumentDeps struct {
	Dispatcher Dispatcher
	Cleaner    *cleaner.Cleaner
	Extractor  *extractor.Extractor

	// Qualify resolves root-relative links against the site origin.
	Qualify func(string) string

	// Cache keeps recent previews keyed by URL. May be nil.
	Cache *cache.Cache[*models.DocumentResponse]
}

// Document returns a handler for POST /api/v1/document.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults, qualify the URL.
//  2. Cache lookup.
//  3. Dispatcher.Dispatch → text + HTML        (records navigation_ms)
//  4. Extractor over the text, Cleaner.Preview  (records cleaning_ms)
//  5. Fill timing, cache, respond.
func Document(deps DocumentDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.DocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DocumentResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()
		target := req.URL
		if deps.Qualify != nil {
			target = deps.Qualify(target)
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		key := cache.Key(target, strconv.FormatBool(*req.Markdown))
		if deps.Cache != nil {
			if cached, hit := deps.Cache.Get(key); hit {
				resp := *cached
				resp.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		// ── 3. Fetch ────────────────────────────────────────────────
		timeout := time.Duration(req.Timeout) * time.Second
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		navStart := time.Now()
		result, err := deps.Dispatcher.Dispatch(ctx, &engine.FetchRequest{URL: target, Timeout: timeout})
		navigationMs := time.Since(navStart).Milliseconds()
		if err != nil {
			se := asScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.DocumentResponse{
				URL:   target,
				Error: se.ToDetail(),
				Timing: models.TimingInfo{
					TotalMs:      time.Since(totalStart).Milliseconds(),
					NavigationMs: navigationMs,
				},
			})
			return
		}

		// ── 4. Extract + preview ────────────────────────────────────
		cleanStart := time.Now()
		rec := deps.Extractor.Extract(result.Text)
		resp := models.DocumentResponse{
			Success:    true,
			URL:        target,
			Title:      result.Title,
			Applicable: rec != nil,
			Record:     rec,
			EngineUsed: result.EngineName,
		}
		if *req.Markdown && result.HTML != "" {
			preview, err := deps.Cleaner.Preview(result.HTML, result.FinalURL)
			if err != nil {
				se := asScrapeError(err)
				c.JSON(mapErrorToStatus(se), models.DocumentResponse{URL: target, Error: se.ToDetail()})
				return
			}
			resp.Markdown = preview.Markdown
			if resp.Title == "" {
				resp.Title = preview.Title
			}
		}
		cleaningMs := time.Since(cleanStart).Milliseconds()

		// ── 5. Timing, cache, respond ───────────────────────────────
		resp.Timing = models.TimingInfo{
			TotalMs:      time.Since(totalStart).Milliseconds(),
			NavigationMs: navigationMs,
			CleaningMs:   cleaningMs,
		}
		if deps.Cache != nil {
			stored := resp
			deps.Cache.Set(key, &stored)
		}
		c.JSON(http.StatusOK, resp)
	}
}
