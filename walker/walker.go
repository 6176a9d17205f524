// Package walker collects Nota de Empenho links from the paginated DODF
// listing.
package walker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/dodf/models"
)

const (
	hrefMarker = "extrato"
	textMarker = "nota de empenho"
)

// Anchor is a link observed on one listing page.
type Anchor struct {
	Href string
	Text string // rendered visible text
}

// Listing is an already-opened listing restricted to the "Extrato" category.
type Listing interface {
	// Anchors returns the anchors on the current page whose href contains
	// "extrato". Implementations may return more; the walker filters again.
	Anchors(ctx context.Context) ([]Anchor, error)

	// Next advances to the following page. It returns false, nil when no
	// interactable next-page control appeared within the bounded wait.
	Next(ctx context.Context) (bool, error)
}

// Keep reports whether an anchor is a Nota de Empenho candidate: its href
// contains "extrato" and its visible text contains "nota de empenho",
// both case-insensitively.
func Keep(a Anchor) bool {
	return a.Href != "" &&
		strings.Contains(strings.ToLower(a.Href), hrefMarker) &&
		strings.Contains(strings.ToLower(a.Text), textMarker)
}

// Collector accumulates candidate links across pages, keeping first-seen
// order and dropping repeated URLs.
type Collector struct {
	links []models.CandidateLink
	seen  map[string]struct{}
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add filters anchors and appends the new ones. It returns how many were added.
func (c *Collector) Add(anchors []Anchor) int {
	added := 0
	for _, a := range anchors {
		if !Keep(a) {
			continue
		}
		if _, dup := c.seen[a.Href]; dup {
			continue
		}
		c.seen[a.Href] = struct{}{}
		c.links = append(c.links, models.CandidateLink{
			URL:  a.Href,
			Text: strings.TrimSpace(a.Text),
		})
		added++
	}
	return added
}

// Links returns the collected links in discovery order.
func (c *Collector) Links() []models.CandidateLink {
	out := make([]models.CandidateLink, len(c.links))
	copy(out, c.links)
	return out
}

// Walk pages through the listing until the next-page control is gone and
// returns the deduplicated candidates. Any error stops the walk; the links
// gathered so far are still returned. The result is never nil.
func Walk(ctx context.Context, listing Listing) []models.CandidateLink {
	c := NewCollector()

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("listing walk interrupted", "page", page, "error", err)
			break
		}

		anchors, err := listing.Anchors(ctx)
		if err != nil {
			slog.Warn("listing walk stopped: failed to read anchors",
				"page", page, "error", err,
			)
			break
		}
		added := c.Add(anchors)
		slog.Debug("listing page collected",
			"page", page, "anchors", len(anchors), "added", added,
		)

		more, err := listing.Next(ctx)
		if err != nil {
			slog.Warn("listing walk stopped: failed to advance",
				"page", page, "error", err,
			)
			break
		}
		if !more {
			slog.Info("listing walk finished", "pages", page, "links", len(c.links))
			break
		}
	}

	return c.Links()
}
