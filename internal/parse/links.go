package parse

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var linkAttrs = []struct{ selector, attr string }{
	{"a[href]", "href"},
	{"img[src]", "src"},
}

// ResolveLinks rewrites relative href and src attributes under sel against
// base. In-page anchors and javascript: links are left alone. An unparsable
// base leaves everything untouched.
func ResolveLinks(sel *goquery.Selection, base string) {
	if sel == nil || strings.TrimSpace(base) == "" {
		return
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return
	}
	for _, la := range linkAttrs {
		sel.Find(la.selector).Each(func(_ int, s *goquery.Selection) {
			ref := strings.TrimSpace(s.AttrOr(la.attr, ""))
			if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "javascript:") {
				return
			}
			u, err := url.Parse(ref)
			if err != nil || u.IsAbs() {
				return
			}
			s.SetAttr(la.attr, b.ResolveReference(u).String())
		})
	}
}
