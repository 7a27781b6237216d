package models

// Index is the summary written to <output_root>/index.json after a run.
type Index struct {
	// Sections maps each section directory to the Markdown files it holds.
	Sections map[string][]string `json:"sections"`

	// TotalFiles is the number of Markdown files across all sections.
	TotalFiles int `json:"total_files"`

	// FailedURLs lists every URL that failed during the run, in order.
	FailedURLs []string `json:"failed_urls"`

	// SkippedURLs lists URLs not fetched because robots.txt disallowed them.
	SkippedURLs []string `json:"skipped_urls,omitempty"`
}
