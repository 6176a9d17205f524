package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to Rod protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// trackerDomains are analytics hosts embedded in government portals. They
// never carry publication text.
var trackerDomains = map[string]struct{}{
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"doubleclick.net":       {},
	"hotjar.com":            {},
	"facebook.net":          {},
	"clarity.ms":            {},
	"vlibras.gov.br":        {},
}

// isTrackerHost checks host and each of its parent domains.
func isTrackerHost(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return false
}

// blockedSet resolves config names, ignoring unknown ones. Scripts are never
// blocked: the listing and document pages render their text with them.
func blockedSet(names []string) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := resourceTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	return blocked
}

// setupHijack installs a request interceptor that fails requests for the
// blocked resource types and for tracker hosts.
//
// Returns the running HijackRouter so the caller can defer router.Stop().
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := blockedSet(blockedTypes)

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, ok := blocked[ctx.Request.Type()]; ok {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isTrackerHost(u.Hostname()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
