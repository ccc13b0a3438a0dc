package parse

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func NewDocument(htmlText string) (*goquery.Document, error) {
	if strings.TrimSpace(htmlText) == "" {
		return nil, errors.New("empty html")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(htmlText))
}

// FirstMatch returns the first element matching any of the selectors, tried
// in order. The result is empty when none match.
func FirstMatch(root *goquery.Selection, selectors []string) *goquery.Selection {
	if root == nil {
		return &goquery.Selection{}
	}
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if found := root.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return root.Slice(0, 0)
}

// TextOf returns the whitespace-normalized text of the first match of
// selector, or "".
func TextOf(root *goquery.Selection, selector string) string {
	if root == nil || strings.TrimSpace(selector) == "" {
		return ""
	}
	return normalize(root.Find(selector).First().Text())
}

// JoinedText joins every non-blank text node under sel with sep.
func JoinedText(sel *goquery.Selection, sep string) string {
	if sel == nil {
		return ""
	}
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := normalize(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
