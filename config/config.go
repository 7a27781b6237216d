package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Crawl   CrawlConfig
	Fetch   FetchConfig
	Browser BrowserConfig
	Cache   CacheConfig
	Webhook WebhookConfig
	Log     LogConfig
}

// CrawlConfig controls what is crawled and where output goes.
type CrawlConfig struct {
	// BaseURL is the documentation site root.
	BaseURL string // default: "https://data-star.dev"

	// OutputDir is the root of the Markdown tree and index.json.
	OutputDir string // default: "../../ref/datastar-docs"

	// Sections are crawled in this order.
	Sections []string // default: [guide, reference, examples, how_tos]

	// Delay is the minimum interval between two requests.
	Delay time.Duration // default: 300ms

	// ExtractMode is "selector" or "readability".
	ExtractMode string // default: "selector"

	// RespectRobots gates page downloads on <base>/robots.txt.
	RespectRobots bool // default: true
}

// FetchConfig controls the page fetch engine.
type FetchConfig struct {
	// Engine is "http", "browser" or "auto". "auto" starts with plain HTTP
	// and escalates to the browser for pages that fail or look unrendered.
	Engine string // default: "http"

	// Timeout is the per-request deadline.
	Timeout time.Duration // default: 10s

	UserAgent string
}

// BrowserConfig controls the Rod browser used by the "browser" engine.
type BrowserConfig struct {
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth opens pages through go-rod/stealth.
	Stealth bool // default: false

	// BlockResources lists sub-resource types the browser does not load:
	// Image, Stylesheet, Font, Media.
	BlockResources []string // default: [Image, Font, Media]

	// BlockTrackers drops requests to known analytics hosts.
	BlockTrackers bool // default: true
}

// CacheConfig controls the in-run page cache.
type CacheConfig struct {
	MaxEntries int           // default: 64
	TTL        time.Duration // default: 10m
}

// WebhookConfig controls the completion notification. Disabled when URL is empty.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "text" or "json"; default: "text"
}

// Load reads configuration from environment variables with compiled-in defaults.
func Load() *Config {
	return &Config{
		Crawl: CrawlConfig{
			BaseURL:   envOr("DOCCRAWL_BASE_URL", "https://data-star.dev"),
			OutputDir: envOr("DOCCRAWL_OUTPUT_DIR", "../../ref/datastar-docs"),
			Sections: envSliceOr("DOCCRAWL_SECTIONS", []string{
				"guide", "reference", "examples", "how_tos",
			}),
			Delay:         envDurationOr("DOCCRAWL_DELAY", 300*time.Millisecond),
			ExtractMode:   envOr("DOCCRAWL_EXTRACT_MODE", "selector"),
			RespectRobots: envBoolOr("DOCCRAWL_RESPECT_ROBOTS", true),
		},
		Fetch: FetchConfig{
			Engine:    envOr("DOCCRAWL_ENGINE", "http"),
			Timeout:   envDurationOr("DOCCRAWL_TIMEOUT", 10*time.Second),
			UserAgent: envOr("DOCCRAWL_USER_AGENT", "Mozilla/5.0 (compatible; DocumentationCrawler/1.0)"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("DOCCRAWL_HEADLESS", true),
			NoSandbox:  envBoolOr("DOCCRAWL_NO_SANDBOX", false),
			BrowserBin: os.Getenv("DOCCRAWL_BROWSER_BIN"),
			Stealth:    envBoolOr("DOCCRAWL_STEALTH", false),
			BlockResources: envSliceOr("DOCCRAWL_BLOCK_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockTrackers: envBoolOr("DOCCRAWL_BLOCK_TRACKERS", true),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("DOCCRAWL_CACHE_MAX_ENTRIES", 64),
			TTL:        envDurationOr("DOCCRAWL_CACHE_TTL", 10*time.Minute),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("DOCCRAWL_WEBHOOK_URL"),
			Secret: os.Getenv("DOCCRAWL_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("DOCCRAWL_LOG_LEVEL", "info"),
			Format: envOr("DOCCRAWL_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
