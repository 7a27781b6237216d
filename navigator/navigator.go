// Package navigator discovers the pages of a documentation section from the
// sidebar links on the section's index page.
package navigator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Strategy is one CSS selector expected to match sidebar anchors.
type Strategy struct {
	Name     string
	Selector string
}

// DefaultStrategies cover generic aside/nav sidebars and the class
// conventions of common documentation themes, highest priority first.
var DefaultStrategies = []Strategy{
	{Name: "aside-nav", Selector: "aside nav a"},
	{Name: "aside", Selector: "aside a"},
	{Name: "sidebar", Selector: ".sidebar a"},
	{Name: "vitepress", Selector: ".VPSidebar a"},
	{Name: "vitepress-item", Selector: ".VPSidebarItem a"},
	{Name: "nav-sidebar", Selector: "nav.sidebar a"},
	{Name: "aria-navigation", Selector: `[role="navigation"] a`},
	{Name: "sidebar-links", Selector: ".sidebar-links a"},
	{Name: "sidebar-link", Selector: ".sidebar-link"},
}

var anchorSelector = cascadia.MustCompile("a[href]")

type compiledStrategy struct {
	name string
	sel  cascadia.Sel
}

// Navigator extracts section slugs from index-page HTML.
type Navigator struct {
	strategies []compiledStrategy
}

// New compiles the given strategies. An invalid selector is an error.
func New(strategies []Strategy) (*Navigator, error) {
	compiled := make([]compiledStrategy, 0, len(strategies))
	for _, s := range strategies {
		sel, err := cascadia.Parse(s.Selector)
		if err != nil {
			return nil, fmt.Errorf("navigator: strategy %q: %w", s.Name, err)
		}
		compiled = append(compiled, compiledStrategy{name: s.Name, sel: sel})
	}
	return &Navigator{strategies: compiled}, nil
}

// Default returns a Navigator using DefaultStrategies.
func Default() *Navigator {
	n, err := New(DefaultStrategies)
	if err != nil {
		panic(err)
	}
	return n
}

// Discover returns the slugs of section pages linked from rawHTML. The
// section root "" is always first, the remaining slugs follow in document
// order without duplicates.
//
// The first strategy that yields at least one section link wins. When none
// does, every anchor in the document is scanned instead.
func (n *Navigator) Discover(rawHTML, section string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("navigator: parse html: %w", err)
	}

	var slugs []string
	for _, s := range n.strategies {
		slugs = strategySlugs(cascadia.QueryAll(doc, s.sel), section)
		if len(slugs) > 0 {
			slog.Debug("navigation strategy matched",
				"section", section, "strategy", s.name, "links", len(slugs))
			break
		}
	}

	if len(slugs) == 0 {
		slugs = fallbackSlugs(cascadia.QueryAll(doc, anchorSelector), section)
		slog.Debug("navigation fallback scan", "section", section, "links", len(slugs))
	}

	return withRoot(slugs), nil
}

// strategySlugs keeps anchors pointing at the section root or below it.
// Slugs carrying a fragment are dropped.
func strategySlugs(anchors []*html.Node, section string) []string {
	bare := "/" + section
	prefix := bare + "/"

	var slugs []string
	for _, a := range anchors {
		href := attr(a, "href")
		switch {
		case href == bare:
			slugs = append(slugs, "")
		case strings.HasPrefix(href, prefix):
			slug := strings.Trim(strings.TrimPrefix(href, prefix), "/")
			if !strings.Contains(slug, "#") {
				slugs = append(slugs, slug)
			}
		}
	}
	return slugs
}

// fallbackSlugs keeps any anchor below the section, stripping query and
// fragment. The section root is never produced here.
func fallbackSlugs(anchors []*html.Node, section string) []string {
	prefix := "/" + section + "/"

	var slugs []string
	for _, a := range anchors {
		href := attr(a, "href")
		if !strings.HasPrefix(href, prefix) {
			continue
		}
		slug := strings.TrimPrefix(href, prefix)
		if i := strings.IndexAny(slug, "?#"); i >= 0 {
			slug = slug[:i]
		}
		slug = strings.Trim(slug, "/")
		if slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return slugs
}

func withRoot(slugs []string) []string {
	out := []string{""}
	seen := map[string]bool{"": true}
	for _, s := range slugs {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
