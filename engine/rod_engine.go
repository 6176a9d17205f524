package engine

import (
	"context"
	"fmt"
	"strings"
)

// RodFetchFunc is the callback that renders a document in a browser.
// It is injected from main.go to avoid a circular import (engine/ -> scraper/).
type RodFetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine is the browser-based engine. It delegates to the scraper via
// a callback.
type RodEngine struct {
	fetchFunc RodFetchFunc
}

// NewRodEngine creates a RodEngine around fetchFunc.
func NewRodEngine(fetchFunc RodFetchFunc) *RodEngine {
	return &RodEngine{fetchFunc: fetchFunc}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("%s: fetchFunc not configured", e.Name())
	}

	result, err := e.fetchFunc(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, fmt.Errorf("%s: %s: %w", e.Name(), req.URL, ErrEmptyText)
	}

	result.EngineName = e.Name()
	return result, nil
}
