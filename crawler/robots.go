package crawler

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/temoto/robotstxt"
)

// RobotsAgent is the user-agent token matched against robots.txt groups.
const RobotsAgent = "DocumentationCrawler"

// robotsGate answers whether a page may be fetched. A nil data allows all.
type robotsGate struct {
	data *robotstxt.RobotsData
}

func (g *robotsGate) allowed(pageURL string) bool {
	if g == nil || g.data == nil {
		return true
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return g.data.TestAgent(path, RobotsAgent)
}

// loadRobots fetches <base>/robots.txt once. A missing or unreadable file
// allows everything.
func (c *Crawler) loadRobots(ctx context.Context) *robotsGate {
	if !c.cfg.RespectRobots {
		return &robotsGate{}
	}

	robotsURL := c.baseURL() + "/robots.txt"
	res, err := c.fetchWith(ctx, c.robotsEngine, robotsURL)
	if err != nil {
		slog.Info("robots.txt unavailable, allowing all pages", "url", robotsURL, "error", err)
		return &robotsGate{}
	}

	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, []byte(res.HTML))
	if err != nil {
		slog.Warn("robots.txt unreadable, allowing all pages", "url", robotsURL, "error", err)
		return &robotsGate{}
	}

	slog.Debug("robots.txt loaded", "url", robotsURL)
	return &robotsGate{data: data}
}
