package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/doccrawl/cleaner"
	"github.com/use-agent/doccrawl/config"
	"github.com/use-agent/doccrawl/engine"
	"github.com/use-agent/doccrawl/models"
	"github.com/use-agent/doccrawl/webhook"
)

const guideIndex = `<html><head><title>Guide</title></head><body>
<aside><nav><a href="/guide/intro">Intro</a></nav></aside>
<main><h1>Guide</h1><p>Start here.</p></main>
</body></html>`

const introPage = `<html><head><title>Intro</title></head><body>
<header><h1>Intro</h1></header>
<nav><a href="/guide">Guide</a></nav>
<main>
<p>Datastar it` + "\u00e2\u0080\u0099" + `s simple.</p>
<pre><code>&lt;div data-signals="{count: 0}"&gt;&lt;/div&gt;</code></pre>
</main>
</body></html>`

func testConfig(t *testing.T, baseURL string, sections ...string) *config.Config {
	t.Helper()
	return &config.Config{
		Crawl: config.CrawlConfig{
			BaseURL:       baseURL,
			OutputDir:     t.TempDir(),
			Sections:      sections,
			ExtractMode:   cleaner.ModeSelector,
			RespectRobots: true,
		},
		Fetch: config.FetchConfig{
			Timeout:   2 * time.Second,
			UserAgent: "DocumentationCrawler/1.0",
		},
		Cache: config.CacheConfig{MaxEntries: 8},
	}
}

// fakeEngine serves canned pages keyed by URL. Unknown URLs fail like a 404.
type fakeEngine struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls map[string]int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[req.URL]++
	if err, ok := f.errs[req.URL]; ok {
		return nil, err
	}
	html, ok := f.pages[req.URL]
	if !ok {
		return nil, fmt.Errorf("fake: HTTP 404 for %s", req.URL)
	}
	return &engine.FetchResult{HTML: html, StatusCode: http.StatusOK, FinalURL: req.URL, EngineName: "fake"}, nil
}

func readIndex(t *testing.T, root string) (models.Index, string) {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(root, IndexFilename))
	if err != nil {
		t.Fatalf("read index.json: %v", err)
	}
	var idx models.Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		t.Fatalf("decode index.json: %v", err)
	}
	return idx, string(raw)
}

func TestRun_GuideIntro(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/guide":
			io.WriteString(w, guideIndex)
		case "/guide/intro":
			io.WriteString(w, introPage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL, "guide")
	var summary bytes.Buffer
	c := New(cfg, engine.NewHTTPEngine(cfg.Fetch.UserAgent), WithSummaryOutput(&summary))

	index, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []string{"index.md", "intro.md"}; !reflect.DeepEqual(index.Sections["guide"], want) {
		t.Errorf("Sections[guide] = %v, want %v", index.Sections["guide"], want)
	}
	if index.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", index.TotalFiles)
	}
	if len(index.FailedURLs) != 0 {
		t.Errorf("FailedURLs = %v", index.FailedURLs)
	}

	mu.Lock()
	if hits["/guide"] != 1 {
		t.Errorf("section index fetched %d times, want 1", hits["/guide"])
	}
	mu.Unlock()

	intro, err := os.ReadFile(filepath.Join(cfg.Crawl.OutputDir, "guide", "intro.md"))
	if err != nil {
		t.Fatalf("read intro.md: %v", err)
	}
	wantHeader := "# Intro\n\nSource: " + srv.URL + "/guide/intro\n\n---\n\n"
	if !strings.HasPrefix(string(intro), wantHeader) {
		t.Errorf("intro.md header mismatch:\n%s", intro)
	}
	for _, want := range []string{"it's simple", "```html", `<div data-signals="{count: 0}"></div>`} {
		if !strings.Contains(string(intro), want) {
			t.Errorf("intro.md missing %q:\n%s", want, intro)
		}
	}

	onDisk, raw := readIndex(t, cfg.Crawl.OutputDir)
	if !reflect.DeepEqual(onDisk.Sections["guide"], []string{"index.md", "intro.md"}) {
		t.Errorf("index.json sections = %v", onDisk.Sections)
	}
	if !strings.Contains(raw, `"failed_urls": []`) {
		t.Errorf("index.json should carry an empty failed_urls list:\n%s", raw)
	}
	if strings.Contains(raw, "skipped_urls") {
		t.Errorf("skipped_urls should be omitted when empty:\n%s", raw)
	}

	if !strings.Contains(summary.String(), "| guide | 2 |") {
		t.Errorf("summary missing section row:\n%s", summary.String())
	}
}

func TestRun_TimeoutRecordedAndContinues(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guide":
			io.WriteString(w, `<aside><nav><a href="/guide/foo">Foo</a><a href="/guide/bar">Bar</a></nav></aside><main><h1>Guide</h1></main>`)
		case "/guide/foo":
			select {
			case <-release:
			case <-r.Context().Done():
			}
		case "/guide/bar":
			io.WriteString(w, `<main><h1>Bar</h1><p>bar page</p></main>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(t, srv.URL, "guide")
	cfg.Fetch.Timeout = 100 * time.Millisecond
	c := New(cfg, engine.NewHTTPEngine("test"), WithSummaryOutput(io.Discard))

	index, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	fooURL := srv.URL + "/guide/foo"
	if !reflect.DeepEqual(index.FailedURLs, []string{fooURL}) {
		t.Errorf("FailedURLs = %v, want [%s]", index.FailedURLs, fooURL)
	}
	if _, err := os.Stat(filepath.Join(cfg.Crawl.OutputDir, "guide", "foo.md")); !os.IsNotExist(err) {
		t.Errorf("foo.md should not exist, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Crawl.OutputDir, "guide", "bar.md")); err != nil {
		t.Errorf("bar.md should exist: %v", err)
	}
	if want := []string{"bar.md", "index.md"}; !reflect.DeepEqual(index.Sections["guide"], want) {
		t.Errorf("Sections[guide] = %v, want %v", index.Sections["guide"], want)
	}
}

func TestRun_DiscoveryFailureFallsBackToRoot(t *testing.T) {
	const base = "https://docs.test"
	eng := newFakeEngine()
	eng.errs[base+"/reference"] = errors.New("connection refused")
	eng.pages[base+"/guide"] = guideIndex
	eng.pages[base+"/guide/intro"] = introPage

	cfg := testConfig(t, base, "reference", "guide")
	index, err := New(cfg, eng, WithSummaryOutput(io.Discard)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := eng.calls[base+"/reference"]; got != 2 {
		t.Errorf("reference index fetched %d times, want 2 (discovery + root download)", got)
	}
	if !reflect.DeepEqual(index.FailedURLs, []string{base + "/reference"}) {
		t.Errorf("FailedURLs = %v", index.FailedURLs)
	}
	if files, ok := index.Sections["reference"]; !ok || len(files) != 0 {
		t.Errorf("reference section should be listed empty, got %v (present=%v)", files, ok)
	}
	if index.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", index.TotalFiles)
	}
}

func TestRun_RobotsDisallowedSkipped(t *testing.T) {
	const base = "https://docs.test"
	eng := newFakeEngine()
	eng.pages[base+"/robots.txt"] = "User-agent: *\nDisallow: /guide/private\n"
	eng.pages[base+"/guide"] = `<aside><a href="/guide/public">P</a><a href="/guide/private">X</a></aside><main><h1>Guide</h1></main>`
	eng.pages[base+"/guide/public"] = `<main><h1>Public</h1></main>`
	eng.pages[base+"/guide/private"] = `<main><h1>Private</h1></main>`

	cfg := testConfig(t, base, "guide")
	index, err := New(cfg, eng, WithSummaryOutput(io.Discard)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(index.SkippedURLs, []string{base + "/guide/private"}) {
		t.Errorf("SkippedURLs = %v", index.SkippedURLs)
	}
	if eng.calls[base+"/guide/private"] != 0 {
		t.Error("disallowed page was fetched")
	}
	if want := []string{"index.md", "public.md"}; !reflect.DeepEqual(index.Sections["guide"], want) {
		t.Errorf("Sections[guide] = %v, want %v", index.Sections["guide"], want)
	}
}

func TestRun_RobotsIgnoredWhenDisabled(t *testing.T) {
	const base = "https://docs.test"
	eng := newFakeEngine()
	eng.pages[base+"/robots.txt"] = "User-agent: *\nDisallow: /\n"
	eng.pages[base+"/guide"] = `<main><h1>Guide</h1></main>`

	cfg := testConfig(t, base, "guide")
	cfg.Crawl.RespectRobots = false
	index, err := New(cfg, eng, WithSummaryOutput(io.Discard)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if eng.calls[base+"/robots.txt"] != 0 {
		t.Error("robots.txt fetched although disabled")
	}
	if index.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", index.TotalFiles)
	}
}

type stubDiscoverer struct{ slugs []string }

func (s stubDiscoverer) Discover(string, string) ([]string, error) { return s.slugs, nil }

func TestRun_CustomDiscovererGetsRoot(t *testing.T) {
	const base = "https://docs.test"
	eng := newFakeEngine()
	eng.pages[base+"/examples"] = `<main><h1>Examples</h1></main>`
	eng.pages[base+"/examples/click_to_edit"] = `<main><h1>Click To Edit</h1></main>`

	cfg := testConfig(t, base, "examples")
	c := New(cfg, eng, WithDiscoverer(stubDiscoverer{slugs: []string{"click_to_edit"}}), WithSummaryOutput(io.Discard))
	index, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []string{"click_to_edit.md", "index.md"}; !reflect.DeepEqual(index.Sections["examples"], want) {
		t.Errorf("Sections[examples] = %v, want %v", index.Sections["examples"], want)
	}
}

func TestRun_Webhook(t *testing.T) {
	received := make(chan webhook.Event, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev webhook.Event
		json.NewDecoder(r.Body).Decode(&ev)
		received <- ev
	}))
	defer hook.Close()

	const base = "https://docs.test"
	eng := newFakeEngine()
	eng.pages[base+"/guide"] = `<main><h1>Guide</h1></main>`

	cfg := testConfig(t, base, "guide")
	cfg.Webhook.URL = hook.URL
	c := New(cfg, eng, WithSummaryOutput(io.Discard), WithNotifyDelays([]time.Duration{0}))
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case ev := <-received:
		if ev.Type != webhook.EventCrawlCompleted {
			t.Errorf("event type = %q", ev.Type)
		}
		data, _ := ev.Data.(map[string]any)
		if data["total_files"] != float64(1) {
			t.Errorf("event data = %v", ev.Data)
		}
	default:
		t.Fatal("webhook not called")
	}
}

func TestRun_Cancelled(t *testing.T) {
	eng := newFakeEngine()
	cfg := testConfig(t, "https://docs.test", "guide")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, eng, WithSummaryOutput(io.Discard)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if eng.calls["https://docs.test/guide"] != 0 {
		t.Error("pages fetched after cancellation")
	}
}

func TestRun_SetupFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t, "https://docs.test", "guide")
	cfg.Crawl.OutputDir = blocker

	if _, err := New(cfg, newFakeEngine(), WithSummaryOutput(io.Discard)).Run(context.Background()); err == nil {
		t.Fatal("expected error when output dir cannot be created")
	}
}
