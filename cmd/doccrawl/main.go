package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/use-agent/doccrawl/config"
	"github.com/use-agent/doccrawl/crawler"
	"github.com/use-agent/doccrawl/engine"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("doccrawl starting",
		"base", cfg.Crawl.BaseURL,
		"output", cfg.Crawl.OutputDir,
		"engine", cfg.Fetch.Engine,
		"extractMode", cfg.Crawl.ExtractMode,
	)

	// ── 3. Initialise fetch engines ─────────────────────────────────
	httpEngine := engine.NewHTTPEngine(cfg.Fetch.UserAgent)

	var pageEngine engine.Engine = httpEngine
	switch cfg.Fetch.Engine {
	case "http":
	case "browser", "rod":
		rodEngine := engine.NewRodEngine(cfg.Browser)
		defer rodEngine.Close()
		pageEngine = rodEngine
	case "auto":
		rodEngine := engine.NewRodEngine(cfg.Browser)
		defer rodEngine.Close()
		memory := engine.NewDomainMemory(24 * time.Hour)
		pageEngine = engine.NewDispatcher([]engine.Engine{httpEngine, rodEngine}, memory)
		slog.Info("escalating engine enabled", "engines", []string{httpEngine.Name(), rodEngine.Name()})
	default:
		slog.Warn("unknown engine, using http", "engine", cfg.Fetch.Engine)
	}

	// ── 4. Signal handling ──────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 5. Crawl ────────────────────────────────────────────────────
	c := crawler.New(cfg, pageEngine,
		crawler.WithRobotsEngine(httpEngine),
		crawler.WithProgress(crawler.NewSpinnerProgress(os.Stderr)),
	)

	if _, err := c.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\ncrawl interrupted by user")
			return 0
		}
		slog.Error("crawl failed", "error", err)
		return 1
	}

	slog.Info("doccrawl stopped")
	return 0
}

// initLogger configures slog based on the LogConfig. The text format renders
// through charmbracelet/log for a readable console.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
			Formatter:       charmlog.TextFormatter,
		})
	}

	slog.SetDefault(slog.New(handler))
}
