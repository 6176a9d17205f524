// Package pipeline runs one date end to end: walk the listing, fetch each
// candidate document, extract its record and export the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/dodf/extractor"
	"github.com/use-agent/dodf/models"
	"github.com/use-agent/dodf/simhash"
)

// ErrNothingFound marks a run that produced no artifact. Run never returns
// it; Outcome derives it from the result.
var ErrNothingFound = errors.New("pipeline: nothing found")

// Empty-run reasons.
const (
	ReasonNoLinks   = "no links found"
	ReasonNoRecords = "no records extracted"
)

// LinkSource produces the candidate links for a run.
type LinkSource interface {
	Links(ctx context.Context) ([]models.CandidateLink, error)
}

// Fetcher returns the visible text of one document.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Exporter persists the records of a run and returns the artifact path.
type Exporter interface {
	Export(date time.Time, records []*models.Record) (string, error)
}

// Notifier is told about every finished run.
type Notifier interface {
	Notify(ctx context.Context, runID string, result *models.RunResult)
}

// Runner executes runs. A Runner holds no per-run state, but runs are meant
// to be sequential: each one drives its own browsers.
type Runner struct {
	links     LinkSource
	fetcher   Fetcher
	exporter  Exporter
	extractor *extractor.Extractor
	origin    *url.URL
	limiter   *rate.Limiter
	dupDist   int
	notifier  Notifier
}

// Option configures a Runner.
type Option func(*Runner)

// WithExtractor replaces the default rule set.
func WithExtractor(e *extractor.Extractor) Option {
	return func(r *Runner) { r.extractor = e }
}

// WithRateLimit spaces document fetches to perSecond. Zero disables it.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithDuplicateThreshold drops documents whose text is within distance
// SimHash bits of an earlier document in the same run. Negative disables it.
func WithDuplicateThreshold(distance int) Option {
	return func(r *Runner) { r.dupDist = distance }
}

// WithNotifier reports every finished run to n.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// New creates a Runner. origin qualifies root-relative document links.
func New(links LinkSource, fetcher Fetcher, exporter Exporter, origin string, opts ...Option) (*Runner, error) {
	base, err := url.Parse(strings.TrimRight(origin, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("pipeline: invalid origin %q", origin)
	}
	r := &Runner{
		links:     links,
		fetcher:   fetcher,
		exporter:  exporter,
		extractor: extractor.New(),
		origin:    base,
		dupDist:   -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type runIDKey struct{}

// WithRunID attaches an identifier that is passed to the Notifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Run processes every candidate document for date.
//
// Flow:
//  1. Walk the listing; no links ends the run as empty.
//  2. For each link in discovery order: qualify, fetch, extract.
//     Fetch failures count as empty text; texts without the marker are
//     skipped.
//  3. No records ends the run as empty; otherwise export.
//  4. Notify.
//
// Only BROWSER_LAUNCH failures are returned as errors; every other problem
// is logged and reflected in the result counters.
func (r *Runner) Run(ctx context.Context, date time.Time) (*models.RunResult, error) {
	start := time.Now()
	result := &models.RunResult{
		Date:    date.Format(time.DateOnly),
		Records: []*models.Record{},
	}

	// ── 1. Walk ─────────────────────────────────────────────────────
	links, err := r.links.Links(ctx)
	if err != nil {
		if models.IsCode(err, models.ErrCodeBrowserLaunch) {
			return nil, err
		}
		slog.Warn("listing unavailable, treating as no links", "date", result.Date, "error", err)
	}
	result.LinksFound = len(links)
	if len(links) == 0 {
		return r.finish(ctx, result, ReasonNoLinks, start), nil
	}

	// ── 2. Fetch + extract ──────────────────────────────────────────
	var seen *simhash.Index
	if r.dupDist >= 0 {
		seen = simhash.NewIndex(r.dupDist)
	}

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			slog.Warn("run interrupted", "date", result.Date, "done", i, "total", len(links), "error", err)
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				slog.Warn("run interrupted", "date", result.Date, "done", i, "total", len(links), "error", err)
				break
			}
		}

		target := r.Qualify(link.URL)
		text, err := r.fetcher.FetchText(ctx, target)
		if err != nil {
			if models.IsCode(err, models.ErrCodeBrowserLaunch) {
				return nil, err
			}
			slog.Warn("document fetch failed", "url", target, "error", err)
			result.Failed++
			text = ""
		} else {
			result.Processed++
		}

		rec := r.extractor.Extract(text)
		if rec == nil {
			if err == nil {
				result.Skipped++
			}
			slog.Debug("document skipped", "url", target)
			continue
		}

		if seen != nil {
			if first, dup := seen.Check(target, text); dup {
				slog.Info("near-duplicate document dropped", "url", target, "duplicate_of", first)
				result.Duplicates++
				continue
			}
		}
		result.Records = append(result.Records, rec)
	}

	if len(result.Records) == 0 {
		return r.finish(ctx, result, ReasonNoRecords, start), nil
	}

	// ── 3. Export ───────────────────────────────────────────────────
	path, err := r.exporter.Export(date, result.Records)
	if err != nil {
		slog.Error("export failed", "date", result.Date, "error", err)
		result.Status = models.RunFailed
		result.Reason = err.Error()
		return r.finish(ctx, result, "", start), nil
	}
	result.Artifact = path
	result.Status = models.RunCompleted

	return r.finish(ctx, result, "", start), nil
}

// finish fills the empty status, logs the summary and notifies.
func (r *Runner) finish(ctx context.Context, result *models.RunResult, emptyReason string, start time.Time) *models.RunResult {
	if emptyReason != "" {
		result.Status = models.RunEmpty
		result.Reason = emptyReason
	}

	slog.Info("run finished",
		"date", result.Date,
		"status", result.Status,
		"links", result.LinksFound,
		"processed", result.Processed,
		"records", len(result.Records),
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duplicates", result.Duplicates,
		"artifact", result.Artifact,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	// ── 4. Notify ───────────────────────────────────────────────────
	if r.notifier != nil {
		r.notifier.Notify(ctx, runID(ctx), result)
	}
	return result
}

// Qualify resolves a link as found on the listing against the site origin.
// Absolute URLs are returned unchanged.
func (r *Runner) Qualify(link string) string {
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return link
	}
	if ref.IsAbs() {
		return ref.String()
	}
	return r.origin.ResolveReference(ref).String()
}

// Outcome returns ErrNothingFound for an empty run and nil otherwise.
func Outcome(result *models.RunResult) error {
	if result != nil && result.Status == models.RunEmpty {
		return fmt.Errorf("%w: %s", ErrNothingFound, result.Reason)
	}
	return nil
}
