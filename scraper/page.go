package scraper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/dodf/models"
)

// Document is a rendered publication page.
type Document struct {
	// Text is the rendered visible text of <body> (innerText).
	Text string

	// HTML is the rendered page HTML.
	HTML string

	Title      string
	StatusCode int
	FinalURL   string
}

// RenderText loads one document in a fresh browser and returns its body text.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard    – hard deadline on the whole document
//  2. Launch           – dedicated browser, closed on every path
//  3. Hijack mount     – block images/fonts/media (before navigation!)
//  4. Navigate         – bounded by the document deadline
//  5. Wait             – load event, then DOM stable
//  6. Extract          – body innerText, HTML, title, final URL, status
//
// Step 3 MUST happen before step 4: resource blocking only takes effect for
// navigations that happen after it is installed.
func (s *Scraper) RenderText(ctx context.Context, url string) (*Document, error) {
	// ── 1. Timeout guard ────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(ctx, s.scraperCfg.DocumentTimeout.Std())
	defer cancel()

	// ── 2. Launch ───────────────────────────────────────────────────
	session, err := s.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	page, err := session.newPage()
	if err != nil {
		return nil, err
	}

	// ── 3. Mount hijack router ──────────────────────────────────────
	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	// ── 4. Navigate ─────────────────────────────────────────────────
	if err := p.Navigate(url); err != nil {
		return nil, categorizeError(err, "navigation to document failed")
	}

	// ── 5. Wait ─────────────────────────────────────────────────────
	if err := p.WaitLoad(); err != nil {
		slog.Debug("load event not observed, proceeding", "url", url, "error", err)
	}
	settle(p)

	// ── 6. Extract ──────────────────────────────────────────────────
	text, err := p.Eval(`() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return nil, categorizeError(err, "failed to read document text")
	}
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}

	return &Document{
		Text:       text.Value.Str(),
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: navigationStatus(p),
		FinalURL:   finalURL,
	}, nil
}

// navigationStatus reads the HTTP status of the main document from the
// Navigation Timing API. Zero when the browser does not expose it.
func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
