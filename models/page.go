package models

import (
	"path/filepath"
	"strings"
)

// IndexFilename is the output file name used for a section's root page.
const IndexFilename = "index.md"

// Page identifies one documentation page inside a section.
// An empty Slug denotes the section's own index page.
type Page struct {
	Section string
	Slug    string
}

// URL builds the page URL: <base>/<section>/<slug>, or <base>/<section>
// for the section root.
func (p Page) URL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if p.Slug == "" {
		return base + "/" + p.Section
	}
	return base + "/" + p.Section + "/" + p.Slug
}

// Filename returns "<slug>.md", or "index.md" for the section root.
func (p Page) Filename() string {
	if p.Slug == "" {
		return IndexFilename
	}
	return p.Slug + ".md"
}

// OutputPath returns <root>/<section>/<slug or "index">.md.
func (p Page) OutputPath(root string) string {
	return filepath.Join(root, p.Section, filepath.FromSlash(p.Filename()))
}
