// Package scraper drives the gazette site with go-rod: it opens the
// "Extrato" listing for the walker and renders individual documents.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/dodf/config"
	"github.com/use-agent/dodf/models"
)

// Scraper launches one browser per operation. It holds no browser of its
// own, so it is safe for concurrent use and needs no shutdown.
type Scraper struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	siteCfg    config.SiteConfig
	active     atomic.Int32
}

// New creates a Scraper from the application configuration.
func New(cfg *config.Config) *Scraper {
	return &Scraper{
		browserCfg: cfg.Browser,
		scraperCfg: cfg.Scraper,
		siteCfg:    cfg.Site,
	}
}

// ActiveSessions reports how many browsers are currently running.
func (s *Scraper) ActiveSessions() int {
	return int(s.active.Load())
}

// Session is a dedicated browser process. It is never shared between
// operations; Close kills the process and removes its profile.
type Session struct {
	owner    *Scraper
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func (s *Scraper) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}
	if s.browserCfg.WindowWidth > 0 && s.browserCfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"),
			fmt.Sprintf("%d,%d", s.browserCfg.WindowWidth, s.browserCfg.WindowHeight))
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// NewSession launches a fresh browser. Launch or connect failures are
// reported as BROWSER_LAUNCH errors, the only failure a run propagates.
// A deadline or cancellation of ctx is reported as a timeout instead, so a
// slow document or an interrupted run is never mistaken for a broken browser.
func (s *Scraper) NewSession(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, "browser launch interrupted")
	}
	l := s.newLauncher().Context(ctx)

	controlURL, err := l.Launch()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, categorizeError(ctxErr, "browser launch interrupted")
		}
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, categorizeError(ctxErr, "browser launch interrupted")
		}
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to connect to browser",
			err,
		)
	}

	s.active.Add(1)
	slog.Debug("browser session started", "controlURL", controlURL)
	return &Session{owner: s, launcher: l, browser: browser}, nil
}

// Close disposes of the browser. It is safe to call more than once.
func (ss *Session) Close() {
	if ss.browser == nil {
		return
	}
	if err := ss.browser.Close(); err != nil {
		slog.Debug("browser close failed, killing process", "error", err)
	}
	ss.launcher.Kill()
	ss.launcher.Cleanup()
	ss.browser = nil
	ss.owner.active.Add(-1)
	slog.Debug("browser session closed")
}

// newPage opens a tab sized to the configured window, with stealth
// evasions and Portuguese language headers installed before navigation.
func (ss *Session) newPage() (*rod.Page, error) {
	page, err := ss.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to open page",
			err,
		)
	}

	cfg := ss.owner.browserCfg
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  cfg.WindowWidth,
			Height: cfg.WindowHeight,
		}); err != nil {
			slog.Debug("viewport override failed", "error", err)
		}
	}

	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", err,
			)
		}
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.5",
		}),
	}.Call(page)

	return page, nil
}
