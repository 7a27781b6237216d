package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/doccrawl/config"
	"github.com/ysmood/gson"
)

// RodEngine renders pages in a headless Chromium before reading their HTML.
// Use it for documentation sites whose sidebar is built client-side.
//
// The browser is launched lazily on the first Fetch and shared by every
// subsequent call; Close kills it.
type RodEngine struct {
	cfg     config.BrowserConfig
	name    string
	blocker *blocker

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodEngine creates a RodEngine. With cfg.Stealth the engine is named
// "rod-stealth" and every page is opened through go-rod/stealth.
func NewRodEngine(cfg config.BrowserConfig) *RodEngine {
	name := "rod"
	if cfg.Stealth {
		name = "rod-stealth"
	}
	return &RodEngine{
		cfg:     cfg,
		name:    name,
		blocker: newBlocker(cfg.BlockResources, cfg.BlockTrackers),
	}
}

func (e *RodEngine) Name() string { return e.name }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var page *rod.Page
	if e.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("%s: open page: %w", e.name, err)
	}
	defer page.Close()

	if router := e.blocker.hijack(page); router != nil {
		defer router.Stop()
	}

	p := page.Context(ctx)
	if len(req.Headers) > 0 {
		dict := make([]string, 0, len(req.Headers)*2)
		for k, v := range req.Headers {
			dict = append(dict, k, v)
		}
		cleanup, err := p.SetExtraHeaders(dict)
		if err != nil {
			return nil, fmt.Errorf("%s: set headers: %w", e.name, err)
		}
		defer cleanup()
	}

	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("%s: navigate %s: %w", e.name, req.URL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%s: wait load %s: %w", e.name, req.URL, err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("%s: read html: %w", e.name, err)
	}

	finalURL := req.URL
	if info, err := p.Info(); err == nil {
		finalURL = info.URL
	}

	status := 0
	if res, err := p.Eval(navigationStatusJS); err == nil {
		status = responseStatus(res.Value)
	}
	if err := checkStatus(status, req.URL); err != nil {
		return nil, err
	}
	if status == 0 {
		status = 200
	}

	return &FetchResult{
		HTML:       html,
		StatusCode: status,
		FinalURL:   finalURL,
		EngineName: e.name,
	}, nil
}

// navigationStatusJS reads the document's HTTP status from the Navigation
// Timing entry, or 0 when the browser does not expose it.
const navigationStatusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch(e) {}
	return 0;
}`

// responseStatus converts the evaluated status to an int. Anything that is
// not a number yields 0.
func responseStatus(v gson.JSON) int {
	if _, ok := v.Val().(float64); !ok {
		return 0
	}
	return v.Int()
}

// checkStatus applies the HTTPEngine rule to a browser navigation: status
// >= 400 is a failure. An unknown status (0) is a loaded page, reported as
// 200 by the caller.
func checkStatus(status int, pageURL string) error {
	if status >= 400 {
		return &StatusError{StatusCode: status, URL: pageURL}
	}
	return nil
}

// Close kills the browser process, if one was launched.
func (e *RodEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			slog.Warn("rod: close browser", "error", err)
		}
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
}

func (e *RodEngine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)
	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%s: launch browser: %w", e.name, err)
	}
	slog.Info("browser launched", "engine", e.name, "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%s: connect browser: %w", e.name, err)
	}

	e.launcher = l
	e.browser = browser
	return browser, nil
}
