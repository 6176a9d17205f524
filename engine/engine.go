// Package engine fetches the text of gazette documents. Engines differ in
// cost: plain HTTP is cheap but sees only server-rendered markup, the
// browser engine sees what a reader sees.
package engine

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyText is returned when an engine reached the page but found no
// visible text, which usually means the publication is rendered client-side.
var ErrEmptyText = errors.New("engine: page has no visible text")

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "rod").
	Name() string

	// Fetch retrieves the document for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a document.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	// Text is the visible body text handed to the extractor.
	Text string

	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

// Fetch modes accepted by EnginesFor.
const (
	ModeBrowser = "browser"
	ModeHTTP    = "http"
	ModeAuto    = "auto"
)

// EnginesFor orders the available engines for a fetch mode. Unknown modes
// fall back to the browser.
func EnginesFor(mode string, httpEngine, rodEngine Engine) []Engine {
	switch mode {
	case ModeHTTP:
		return []Engine{httpEngine}
	case ModeAuto:
		return []Engine{httpEngine, rodEngine}
	default:
		return []Engine{rodEngine}
	}
}
