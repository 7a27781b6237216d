package engine

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to CDP resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// trackerDomains are analytics hosts commonly embedded in documentation
// sites. Subdomains match too.
var trackerDomains = map[string]struct{}{
	"google-analytics.com":   {},
	"googletagmanager.com":   {},
	"doubleclick.net":        {},
	"plausible.io":           {},
	"cloudflareinsights.com": {},
	"hotjar.com":             {},
	"segment.com":            {},
	"segment.io":             {},
	"mixpanel.com":           {},
	"clarity.ms":             {},
}

// blocker decides which browser sub-requests are dropped.
type blocker struct {
	types    map[proto.NetworkResourceType]struct{}
	trackers bool
}

func newBlocker(typeNames []string, trackers bool) *blocker {
	b := &blocker{types: make(map[proto.NetworkResourceType]struct{}), trackers: trackers}
	for _, name := range typeNames {
		if rt, ok := resourceTypes[name]; ok {
			b.types[rt] = struct{}{}
		}
	}
	return b
}

func (b *blocker) empty() bool {
	return len(b.types) == 0 && !b.trackers
}

func (b *blocker) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := b.types[rt]; ok {
		return true
	}
	if !b.trackers {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return isTracker(u.Hostname())
}

func isTracker(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// hijack installs the blocker on page. The returned router must be stopped
// by the caller; it is nil when nothing is blocked.
func (b *blocker) hijack(page *rod.Page) *rod.HijackRouter {
	if b.empty() {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if b.blocks(h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()

	return router
}
