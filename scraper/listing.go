package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/dodf/models"
	"github.com/use-agent/dodf/walker"
)

// anchorsJS collects the anchors whose raw href attribute mentions
// "extrato". The attribute is read instead of the resolved property so
// root-relative links stay root-relative.
const anchorsJS = `() => Array.from(document.querySelectorAll('a[href]'))
	.filter(a => (a.getAttribute('href') || '').toLowerCase().includes('extrato'))
	.map(a => ({href: a.getAttribute('href'), text: a.innerText || a.textContent || ''}))`

// listingStateJS fingerprints the rendered listing: the raw hrefs of its
// "extrato" anchors, or the body text when there are none.
const listingStateJS = `() => {
	const hrefs = Array.from(document.querySelectorAll('a[href]'))
		.map(a => a.getAttribute('href') || '')
		.filter(h => h.toLowerCase().includes('extrato'));
	return hrefs.length > 0 ? hrefs.join('\n') : (document.body ? document.body.innerText : '');
}`

// listingChangedJS is true once the fingerprint differs from before.
const listingChangedJS = `(before) => (` + listingStateJS + `)() !== before`

// disabledJS reports whether a pagination control is rendered but inert.
const disabledJS = `function () {
	const li = this.closest('li');
	return this.classList.contains('disabled') ||
		this.getAttribute('aria-disabled') === 'true' ||
		(li !== null && li.classList.contains('disabled'));
}`

// A page is settled once less than domStableDiff of its DOM changes within
// domStableWindow.
const (
	domStableWindow = 300 * time.Millisecond
	domStableDiff   = 0.1
)

// ListingSession is the listing page with the "Extrato" category applied.
// It implements walker.Listing. Close disposes of its browser.
type ListingSession struct {
	session      *Session
	page         *rod.Page
	nextSelector string
	nextTimeout  time.Duration
}

var _ walker.Listing = (*ListingSession)(nil)

// OpenListing launches a browser, loads listingURL and selects the
// configured category.
//
// Lifecycle:
//
//  1. Launch             – fresh browser, owned by the returned session
//  2. Navigate           – bounded by NavigationTimeout
//  3. Wait for control   – category <select>, bounded by ListingReadyTimeout
//  4. Select category    – by visible option text
//  5. Settle             – wait for the filtered listing to render
//
// Any failure after step 1 closes the browser before returning.
func (s *Scraper) OpenListing(ctx context.Context, listingURL string) (ls *ListingSession, err error) {
	// ── 1. Launch ───────────────────────────────────────────────────
	session, err := s.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			session.Close()
		}
	}()

	page, err := session.newPage()
	if err != nil {
		return nil, err
	}

	// ── 2. Navigate ─────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout.Std())
	defer cancel()
	if err := page.Context(navCtx).Navigate(listingURL); err != nil {
		return nil, categorizeError(err, "navigation to listing failed")
	}

	// ── 3. Wait for the category control ────────────────────────────
	readyCtx, readyCancel := context.WithTimeout(ctx, s.scraperCfg.ListingReadyTimeout.Std())
	defer readyCancel()
	sel, err := page.Context(readyCtx).Element(s.siteCfg.CategorySelector)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeElementNotFound,
			fmt.Sprintf("category control %q not found", s.siteCfg.CategorySelector),
			err,
		)
	}

	// ── 4. Select category ──────────────────────────────────────────
	if err := sel.Select([]string{s.siteCfg.Category}, true, rod.SelectorTypeText); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeElementNotFound,
			fmt.Sprintf("category option %q not selectable", s.siteCfg.Category),
			err,
		)
	}

	// ── 5. Settle ───────────────────────────────────────────────────
	settle(page.Context(readyCtx))

	slog.Info("listing opened", "url", listingURL, "category", s.siteCfg.Category)
	return &ListingSession{
		session:      session,
		page:         page,
		nextSelector: s.siteCfg.NextPageSelector,
		nextTimeout:  s.scraperCfg.NextPageTimeout.Std(),
	}, nil
}

// Anchors returns the anchors on the current page whose href contains
// "extrato", with their rendered text.
func (l *ListingSession) Anchors(ctx context.Context) ([]walker.Anchor, error) {
	res, err := l.page.Context(ctx).Eval(anchorsJS)
	if err != nil {
		return nil, categorizeError(err, "failed to read listing anchors")
	}

	items := res.Value.Arr()
	anchors := make([]walker.Anchor, 0, len(items))
	for _, item := range items {
		anchors = append(anchors, walker.Anchor{
			Href: item.Get("href").Str(),
			Text: item.Get("text").Str(),
		})
	}
	return anchors, nil
}

// Next clicks the next-page control. It reports false with no error when
// the control does not become visible and enabled within the wait. After
// the click it waits, again bounded by the next-page timeout, for the
// listing to render different anchors; a listing that never changes is an
// error, not the last page.
func (l *ListingSession) Next(ctx context.Context) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.nextTimeout)
	defer cancel()
	p := l.page.Context(waitCtx)

	el, err := p.Element(l.nextSelector)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, categorizeError(err, "failed to look up next-page control")
	}

	if err := el.WaitVisible(); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, categorizeError(err, "next-page control never became visible")
	}

	if res, err := el.Eval(disabledJS); err == nil && res.Value.Bool() {
		return false, nil
	}

	if err := el.ScrollIntoView(); err != nil {
		return false, categorizeError(err, "failed to scroll to next-page control")
	}
	if _, err := el.WaitInteractable(); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, categorizeError(err, "next-page control is not interactable")
	}
	state, err := p.Eval(listingStateJS)
	if err != nil {
		return false, categorizeError(err, "failed to read listing state")
	}
	before := state.Value.Str()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, categorizeError(err, "failed to click next-page control")
	}

	changeCtx, changeCancel := context.WithTimeout(ctx, l.nextTimeout)
	defer changeCancel()
	if err := l.page.Context(changeCtx).Wait(rod.Eval(listingChangedJS, before)); err != nil {
		if ctx.Err() != nil {
			return false, categorizeError(ctx.Err(), "listing walk interrupted")
		}
		return false, models.NewScrapeError(models.ErrCodeNavigation,
			fmt.Sprintf("listing did not change within %s of clicking next", l.nextTimeout), err)
	}

	settle(l.page.Context(ctx))
	return true, nil
}

// Close disposes of the listing's browser.
func (l *ListingSession) Close() {
	l.session.Close()
}

// settle waits for the DOM to stop changing. A page that never converges is
// read as it stands.
func settle(p *rod.Page) {
	if err := p.WaitDOMStable(domStableWindow, domStableDiff); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}
}
