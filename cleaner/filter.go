package cleaner

import (
	"github.com/PuerkitoBio/goquery"
)

// StripElements detaches every descendant of s matching any of the given
// CSS selectors. Removed nodes are unlinked from the tree, not hidden.
// Invalid selectors are skipped.
func StripElements(s *goquery.Selection, selectors []string) {
	for _, selector := range selectors {
		s.Find(selector).Remove()
	}
}
