package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/dodf/cleaner"
	"github.com/use-agent/dodf/config"
	"github.com/use-agent/dodf/engine"
	"github.com/use-agent/dodf/exporter"
	"github.com/use-agent/dodf/pipeline"
	"github.com/use-agent/dodf/scraper"
	"github.com/use-agent/dodf/webhook"
)

// app holds the long-lived services shared by the subcommands.
type app struct {
	scraper    *scraper.Scraper
	cleaner    *cleaner.Cleaner
	dispatcher *engine.Dispatcher
	memory     *engine.DomainMemory
	runner     *pipeline.Runner
}

// buildApp wires the scraper, fetch engines and pipeline from cfg.
func buildApp(cfg *config.Config) (*app, error) {
	sc := scraper.New(cfg)
	cl := cleaner.New(cfg.Site.ContentSelector)

	// Rod callback: renders through the scraper. The closure keeps engine/
	// free of any scraper/ import.
	rodFetch := func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
		doc, err := sc.RenderText(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return &engine.FetchResult{
			Text:       doc.Text,
			HTML:       doc.HTML,
			Title:      doc.Title,
			StatusCode: doc.StatusCode,
			FinalURL:   doc.FinalURL,
		}, nil
	}

	engines := engine.EnginesFor(cfg.Scraper.FetchMode, engine.NewHTTPEngine(cl), engine.NewRodEngine(rodFetch))
	memory := engine.NewDomainMemory(24*time.Hour, time.Hour)
	dispatcher := engine.NewDispatcher(engines, memory)
	slog.Info("fetch engines ready", "mode", cfg.Scraper.FetchMode, "engines", dispatcher.Engines())

	listing := pipeline.WalkedListing{
		URL: cfg.Site.ListingURL,
		Open: func(ctx context.Context, listingURL string) (pipeline.ClosableListing, error) {
			ls, err := sc.OpenListing(ctx, listingURL)
			if err != nil {
				return nil, err
			}
			return ls, nil
		},
	}

	opts := []pipeline.Option{
		pipeline.WithRateLimit(cfg.Pipeline.DocumentsPerSecond),
		pipeline.WithDuplicateThreshold(cfg.Pipeline.DuplicateThreshold),
	}
	if cfg.Webhook.URL != "" {
		opts = append(opts, pipeline.WithNotifier(webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret)))
	}

	runner, err := pipeline.New(
		listing,
		pipeline.DispatchFetcher{Dispatcher: dispatcher, Timeout: cfg.Scraper.DocumentTimeout.Std()},
		exporter.XLSX{Dir: cfg.Pipeline.OutputDir},
		cfg.Site.Origin,
		opts...,
	)
	if err != nil {
		memory.Stop()
		return nil, err
	}

	return &app{
		scraper:    sc,
		cleaner:    cl,
		dispatcher: dispatcher,
		memory:     memory,
		runner:     runner,
	}, nil
}

// Close stops background goroutines.
func (a *app) Close() {
	a.memory.Stop()
}
