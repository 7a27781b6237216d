// Package crawler drives a documentation crawl: it discovers the pages of
// each configured section, converts every page to Markdown on disk and
// writes an index of the result.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/doccrawl/cache"
	"github.com/use-agent/doccrawl/cleaner"
	"github.com/use-agent/doccrawl/config"
	"github.com/use-agent/doccrawl/engine"
	"github.com/use-agent/doccrawl/models"
	"github.com/use-agent/doccrawl/navigator"
	"github.com/use-agent/doccrawl/simhash"
	"github.com/use-agent/doccrawl/webhook"
)

// Discoverer extracts the page slugs of a section from its index page.
// The result must contain "" for the section root.
type Discoverer interface {
	Discover(rawHTML, section string) ([]string, error)
}

// Crawler runs one documentation crawl. Pages are processed strictly one at
// a time; a Crawler must not be shared by concurrent Runs.
type Crawler struct {
	cfg       config.CrawlConfig
	timeout   time.Duration
	userAgent string
	webhook   config.WebhookConfig

	engine       engine.Engine
	robotsEngine engine.Engine
	discoverer   Discoverer
	extractor    *cleaner.Extractor
	renderer     *cleaner.Renderer
	pages        *cache.Cache
	limiter      *rate.Limiter
	progress     Progress
	out          io.Writer
	notifyDelays []time.Duration
}

// Option customises a Crawler.
type Option func(*Crawler)

// WithDiscoverer replaces the default sidebar navigator.
func WithDiscoverer(d Discoverer) Option {
	return func(c *Crawler) { c.discoverer = d }
}

// WithRobotsEngine fetches robots.txt with e instead of the page engine.
func WithRobotsEngine(e engine.Engine) Option {
	return func(c *Crawler) { c.robotsEngine = e }
}

// WithProgress reports per-section progress to p.
func WithProgress(p Progress) Option {
	return func(c *Crawler) { c.progress = p }
}

// WithSummaryOutput sets where the final summary is printed (default stdout).
func WithSummaryOutput(w io.Writer) Option {
	return func(c *Crawler) { c.out = w }
}

// WithNotifyDelays overrides the webhook retry schedule.
func WithNotifyDelays(delays []time.Duration) Option {
	return func(c *Crawler) { c.notifyDelays = delays }
}

// New creates a Crawler fetching pages through eng.
func New(cfg *config.Config, eng engine.Engine, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:          cfg.Crawl,
		timeout:      cfg.Fetch.Timeout,
		userAgent:    cfg.Fetch.UserAgent,
		webhook:      cfg.Webhook,
		engine:       eng,
		robotsEngine: eng,
		discoverer:   navigator.Default(),
		extractor:    cleaner.NewExtractor(cfg.Crawl.ExtractMode),
		renderer:     cleaner.NewRenderer(),
		pages:        cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL),
		limiter:      rate.NewLimiter(rate.Every(cfg.Crawl.Delay), 1),
		progress:     noopProgress{},
		out:          os.Stdout,
		notifyDelays: webhook.DefaultRetryDelays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run holds the state owned by a single Run.
type run struct {
	ledger *Ledger
	robots *robotsGate
	dupes  *simhash.Index
}

// Run crawls every configured section and returns the written index.
//
// Flow:
//  1. Create the output directories.
//  2. Load robots.txt.
//  3. Per section: discover pages, then download each one.
//  4. Build and write index.json.
//  5. Notify the webhook, if configured.
//  6. Print the summary.
//
// Page failures are recorded and never stop the run. A cancelled ctx stops
// it between requests and returns the context error.
func (c *Crawler) Run(ctx context.Context) (*models.Index, error) {
	start := time.Now()

	// ── 1. Output directories ───────────────────────────────────────
	if err := c.setupDirs(); err != nil {
		return nil, err
	}
	slog.Info("crawl started",
		"base", c.cfg.BaseURL,
		"output", c.cfg.OutputDir,
		"sections", c.cfg.Sections,
		"engine", c.engine.Name(),
	)

	// ── 2. robots.txt ───────────────────────────────────────────────
	r := &run{
		ledger: NewLedger(),
		robots: c.loadRobots(ctx),
		dupes:  simhash.NewIndex(simhash.DefaultThreshold),
	}

	// ── 3. Sections ─────────────────────────────────────────────────
	for _, section := range c.cfg.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slugs, err := c.discover(ctx, r, section)
		if err != nil {
			return nil, err
		}
		if err := c.downloadSection(ctx, r, section, slugs); err != nil {
			return nil, err
		}
	}

	// ── 4. Index ────────────────────────────────────────────────────
	index, err := BuildIndex(c.cfg.OutputDir, r.ledger)
	if err != nil {
		return nil, err
	}
	path, err := WriteIndex(c.cfg.OutputDir, index)
	if err != nil {
		return nil, err
	}
	slog.Info("index written", "path", path, "total_files", index.TotalFiles)

	// ── 5. Webhook ──────────────────────────────────────────────────
	c.notify(ctx, index, start)

	// ── 6. Summary ──────────────────────────────────────────────────
	if err := PrintSummary(c.out, index); err != nil {
		slog.Warn("print summary failed", "error", err)
	}

	slog.Info("crawl finished",
		"downloaded", r.ledger.Downloaded(),
		"failed", len(index.FailedURLs),
		"skipped", len(index.SkippedURLs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return index, nil
}

func (c *Crawler) setupDirs() error {
	for _, section := range c.cfg.Sections {
		dir := filepath.Join(c.cfg.OutputDir, section)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("crawler: create %s: %w", dir, err)
		}
	}
	return nil
}

// discover returns the slugs of section, always including "". A failed
// index fetch degrades to the section root alone.
func (c *Crawler) discover(ctx context.Context, r *run, section string) ([]string, error) {
	indexURL := models.Page{Section: section}.URL(c.cfg.BaseURL)
	fallback := []string{""}

	if !r.robots.allowed(indexURL) {
		slog.Warn("robots.txt disallows section index, skipping discovery", "url", indexURL)
		return fallback, nil
	}

	slog.Info("fetching navigation", "section", section, "url", indexURL)
	res, err := c.fetch(ctx, indexURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("discovery failed, falling back to section index only",
			"section", section,
			"error", models.NewCrawlError(models.ErrCodeDiscovery, indexURL, "fetch section index", err),
		)
		return fallback, nil
	}
	c.pages.Set(cache.Key(indexURL), res)

	slugs, err := c.discoverer.Discover(res.HTML, section)
	if err != nil {
		slog.Warn("discovery failed, falling back to section index only",
			"section", section,
			"error", models.NewCrawlError(models.ErrCodeDiscovery, indexURL, "parse navigation", err),
		)
		return fallback, nil
	}
	slugs = ensureRoot(slugs)

	slog.Info("pages discovered", "section", section, "count", len(slugs))
	return slugs, nil
}

func ensureRoot(slugs []string) []string {
	for _, s := range slugs {
		if s == "" {
			return slugs
		}
	}
	return append([]string{""}, slugs...)
}

func (c *Crawler) downloadSection(ctx context.Context, r *run, section string, slugs []string) error {
	before := r.ledger.Downloaded()
	c.progress.Start(section, len(slugs))

	for _, slug := range slugs {
		page := models.Page{Section: section, Slug: slug}
		if err := c.downloadPage(ctx, r, page); err != nil {
			c.progress.Finish(r.ledger.Downloaded() - before)
			return err
		}
		c.progress.Advance(page.URL(c.cfg.BaseURL))
	}

	succeeded := r.ledger.Downloaded() - before
	c.progress.Finish(succeeded)
	slog.Info("section downloaded", "section", section, "succeeded", succeeded, "total", len(slugs))
	return nil
}

// downloadPage fetches, converts and writes one page, recording the outcome.
// It returns an error only when ctx is done.
func (c *Crawler) downloadPage(ctx context.Context, r *run, page models.Page) error {
	pageURL := page.URL(c.cfg.BaseURL)

	if !r.robots.allowed(pageURL) {
		slog.Warn("robots.txt disallows page, skipping", "url", pageURL,
			"code", models.ErrCodeDisallowed)
		r.ledger.RecordSkipped(pageURL)
		return nil
	}

	if err := c.savePage(ctx, r, page, pageURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("page failed", "url", pageURL, "error", err)
		r.ledger.RecordFailure(pageURL)
		return nil
	}

	r.ledger.RecordSuccess(pageURL)
	slog.Debug("page saved", "url", pageURL)
	return nil
}

func (c *Crawler) savePage(ctx context.Context, r *run, page models.Page, pageURL string) error {
	res, err := c.fetch(ctx, pageURL)
	if err != nil {
		return err
	}

	title, doc, err := c.convert(res.HTML, pageURL)
	if err != nil {
		return err
	}

	body := strings.TrimPrefix(doc, cleaner.Header(title, pageURL))
	id := page.Section + "/" + page.Filename()
	if match, dist, ok := r.dupes.Add(id, simhash.FingerprintShingles(body, 3)); ok {
		slog.Warn("page looks like a near duplicate", "page", id, "of", match, "distance", dist)
	}

	path := page.OutputPath(c.cfg.OutputDir)
	if !within(c.cfg.OutputDir, path) {
		return models.NewCrawlError(models.ErrCodeWrite, pageURL, "path escapes output dir", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.NewCrawlError(models.ErrCodeWrite, pageURL, "create dir", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return models.NewCrawlError(models.ErrCodeWrite, pageURL, "write markdown", err)
	}
	return nil
}

// convert extracts and renders rawHTML. A panic inside the HTML tooling is
// reported as an extraction failure for this page only.
func (c *Crawler) convert(rawHTML, pageURL string) (title, doc string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = models.NewCrawlError(models.ErrCodeExtraction, pageURL, fmt.Sprint("panic: ", p), nil)
		}
	}()

	ex, err := c.extractor.Extract(rawHTML, pageURL)
	if err != nil {
		return "", "", err
	}

	doc, err = c.renderer.Render(ex.ContentHTML, ex.Title, pageURL)
	if err != nil {
		return "", "", models.NewCrawlError(models.ErrCodeExtraction, pageURL, "render markdown", err)
	}
	return ex.Title, doc, nil
}

// fetch returns a cached page or fetches it through the page engine.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*engine.FetchResult, error) {
	if res, ok := c.pages.Get(cache.Key(pageURL)); ok {
		slog.Debug("page cache hit", "url", pageURL)
		return res, nil
	}
	return c.fetchWith(ctx, c.engine, pageURL)
}

// fetchWith waits for the pacing limiter, then fetches pageURL with eng.
func (c *Crawler) fetchWith(ctx context.Context, eng engine.Engine, pageURL string) (*engine.FetchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("crawler: pacing: %w", err)
	}

	res, err := eng.Fetch(ctx, &engine.FetchRequest{
		URL:     pageURL,
		Headers: map[string]string{"User-Agent": c.userAgent},
		Timeout: c.timeout,
	})
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeFetch, pageURL, "fetch page", err)
	}
	return res, nil
}

func (c *Crawler) notify(ctx context.Context, index *models.Index, start time.Time) {
	if c.webhook.URL == "" {
		return
	}

	event := &webhook.Event{
		Type:      webhook.EventCrawlCompleted,
		RunID:     start.UTC().Format("20060102T150405Z"),
		Timestamp: time.Now().Unix(),
		Data:      index,
	}
	if err := webhook.Notify(ctx, c.webhook.URL, c.webhook.Secret, event, c.notifyDelays); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("webhook notification failed", "url", c.webhook.URL, "error", err)
	}
}

func (c *Crawler) baseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
