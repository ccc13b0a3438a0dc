package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strip removes every descendant of root matching one of the selectors and
// reports how many elements were dropped.
func Strip(root *goquery.Selection, selectors []string) int {
	if root == nil {
		return 0
	}
	joined := joinSelectors(selectors)
	if joined == "" {
		return 0
	}
	found := root.Find(joined)
	n := found.Length()
	found.Remove()
	return n
}

func joinSelectors(selectors []string) string {
	kept := make([]string, 0, len(selectors))
	for _, s := range selectors {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}
