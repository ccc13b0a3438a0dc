package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"helptree/internal/parse"
)

// SelectorCount is the number of elements one configured selector matched.
type SelectorCount struct {
	Name     string
	Selector string
	Matches  int
}

// Match describes one element found by an ad-hoc selector.
type Match struct {
	Tag     string
	ID      string
	Class   string
	TextLen int
	Snippet string
}

// Inspection is a snapshot of how the configured selectors fare against the
// live help center before any node is expanded.
type Inspection struct {
	URL     string
	Counts  []SelectorCount
	Check   string
	Matches []Match
}

const maxSamples = 3

// Inspect signs in, opens the help center and counts matches for every tree
// and content selector. When check is set, the first few elements it matches
// are described as well.
func Inspect(ctx context.Context, opts Options, check string, deps Deps) (Inspection, error) {
	opts.DryRun = true
	r, release, err := prepare(ctx, opts, deps)
	if err != nil {
		return Inspection{}, err
	}
	defer release()

	session, err := r.authenticate(ctx)
	if err != nil {
		return Inspection{}, err
	}
	rootURL, err := session.Resolve(r.s.cfg.HelpCenterURL)
	if err != nil {
		return Inspection{}, err
	}
	if err := r.openHelpCenter(ctx, rootURL); err != nil {
		return Inspection{}, err
	}
	markup, err := r.b.ReadMarkup(ctx, nil)
	if err != nil {
		return Inspection{}, fmt.Errorf("read help center: %w", err)
	}
	doc, err := parse.NewDocument(markup)
	if err != nil {
		return Inspection{}, err
	}

	in := Inspection{URL: rootURL, Check: strings.TrimSpace(check)}
	for _, c := range r.selectorsToCount() {
		c.Matches = doc.Find(c.Selector).Length()
		in.Counts = append(in.Counts, c)
	}
	if in.Check != "" {
		in.Matches = describeMatches(doc.Find(in.Check), maxSamples)
	}
	r.log.Info("inspected help center", zap.String("url", rootURL), zap.Int("selectors", len(in.Counts)))
	return in, nil
}

func (r *runner) selectorsToCount() []SelectorCount {
	t := r.s.tree.Selectors
	c := r.s.content
	counts := []SelectorCount{
		{Name: "folder", Selector: t.Folder},
		{Name: "leaf", Selector: t.Leaf},
		{Name: "toggle", Selector: t.Toggle},
		{Name: "collapsed toggle", Selector: t.Toggle + "[" + t.CollapsedAttr + "*='" + t.CollapsedMarker + "']"},
		{Name: "leaf with trigger", Selector: t.Leaf + "[" + t.TriggerAttr + "]"},
	}
	if t.Root != "" {
		counts = append([]SelectorCount{{Name: "root", Selector: t.Root}}, counts...)
	}
	if c.Region != "" {
		counts = append(counts, SelectorCount{Name: "content region", Selector: c.Region})
	}
	return counts
}

func describeMatches(sel *goquery.Selection, limit int) []Match {
	var out []Match
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		m := Match{
			Tag:     goquery.NodeName(s),
			ID:      s.AttrOr("id", ""),
			Class:   s.AttrOr("class", ""),
			TextLen: len(text),
			Snippet: text,
		}
		if len(m.Snippet) > 100 {
			m.Snippet = m.Snippet[:100] + "..."
		}
		out = append(out, m)
		return true
	})
	return out
}

// PrintInspection writes in the way `helptree inspect` shows it.
func PrintInspection(w io.Writer, in Inspection) {
	fmt.Fprintf(w, "Inspected: %s\n", in.URL)
	fmt.Fprintln(w, "Selector matches:")
	for _, c := range in.Counts {
		fmt.Fprintf(w, "- %s (%s): %d\n", c.Name, c.Selector, c.Matches)
	}
	if in.Check == "" {
		return
	}
	fmt.Fprintf(w, "\nInspecting selector: '%s'\n", in.Check)
	fmt.Fprintf(w, "Showing %d matching element(s)\n", len(in.Matches))
	for i, m := range in.Matches {
		fmt.Fprintf(w, "\n--- Match #%d ---\n", i+1)
		fmt.Fprintf(w, "Tag: %s\n", m.Tag)
		if m.ID != "" {
			fmt.Fprintf(w, "ID: %s\n", m.ID)
		}
		if m.Class != "" {
			fmt.Fprintf(w, "Class: %s\n", m.Class)
		}
		fmt.Fprintf(w, "Text Length: %d chars\n", m.TextLen)
		if m.Snippet != "" {
			fmt.Fprintf(w, "Snippet: %s\n", m.Snippet)
		}
	}
}
