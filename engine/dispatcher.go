package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher tries engines one after another until one returns text.
// Runs fetch one document at a time, so engines are never raced: a browser
// is only launched once the cheaper engines have given up.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher over engines, in escalation order.
// memory may be nil.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{engines: engines, memory: memory}
}

// Engines returns the engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Dispatch returns the first successful result. The engine that last
// succeeded for the URL's host is tried first. If every engine fails, the
// errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}
	domain := extractDomain(req.URL)

	var errs []error
	for _, eng := range d.order(domain) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := eng.Fetch(ctx, req)
		if err != nil {
			slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			errs = append(errs, err)
			if d.memory != nil && d.memory.Get(domain) == eng.Name() {
				d.memory.Delete(domain)
			}
			continue
		}

		if d.memory != nil {
			d.memory.Set(domain, eng.Name())
		}
		return result, nil
	}

	return nil, fmt.Errorf("dispatcher: all engines failed for %s: %w", req.URL, errors.Join(errs...))
}

// order puts the remembered engine for domain first, keeping the rest in
// configured order.
func (d *Dispatcher) order(domain string) []Engine {
	if d.memory == nil {
		return d.engines
	}
	remembered := d.memory.Get(domain)
	if remembered == "" {
		return d.engines
	}

	ordered := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		if e.Name() == remembered {
			ordered = append(ordered, e)
		}
	}
	if len(ordered) == 0 {
		return d.engines
	}
	slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
	for _, e := range d.engines {
		if e.Name() != remembered {
			ordered = append(ordered, e)
		}
	}
	return ordered
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
