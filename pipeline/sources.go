package pipeline

import (
	"context"
	"time"

	"github.com/use-agent/dodf/engine"
	"github.com/use-agent/dodf/models"
	"github.com/use-agent/dodf/walker"
)

// ListingOpener opens the listing with the "Extrato" category applied.
type ListingOpener func(ctx context.Context, listingURL string) (ClosableListing, error)

// ClosableListing is a walker.Listing that owns a browser.
type ClosableListing interface {
	walker.Listing
	Close()
}

// WalkedListing walks the gazette listing in a dedicated browser.
type WalkedListing struct {
	Open ListingOpener
	URL  string
}

// Links opens the listing, walks every page and closes the browser.
// A listing that cannot be opened yields an error; the Runner treats
// anything but a launch failure as zero links.
func (w WalkedListing) Links(ctx context.Context) ([]models.CandidateLink, error) {
	listing, err := w.Open(ctx, w.URL)
	if err != nil {
		return nil, err
	}
	defer listing.Close()
	return walker.Walk(ctx, listing), nil
}

// DispatchFetcher fetches document text through an engine dispatcher.
type DispatchFetcher struct {
	Dispatcher *engine.Dispatcher
	Timeout    time.Duration
}

// FetchText returns the visible text of url.
func (f DispatchFetcher) FetchText(ctx context.Context, url string) (string, error) {
	res, err := f.Dispatcher.Dispatch(ctx, &engine.FetchRequest{URL: url, Timeout: f.Timeout})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
