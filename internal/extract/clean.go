package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"helptree/internal/parse"
)

const placeholderContent = "<p>Error: could not find the main content container on this page.</p>"

// Selectors locate the parts of an opened help page.
type Selectors struct {
	Region     string   `mapstructure:"region" json:"region" yaml:"region"`
	Title      string   `mapstructure:"title" json:"title" yaml:"title"`
	Breadcrumb string   `mapstructure:"breadcrumb" json:"breadcrumb" yaml:"breadcrumb"`
	Containers []string `mapstructure:"containers" json:"containers" yaml:"containers"`
	Remove     []string `mapstructure:"remove" json:"remove" yaml:"remove"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Region:     "#helpcenter_content",
		Title:      "h1.nshelp_title",
		Breadcrumb: "#ns_navigation",
		Containers: []string{"div.nshelp_page", "div.nshelp_content"},
		Remove: []string{
			"#nshelp_footer",
			"#helpcenter_feedback",
			".nshelp_navheader",
			".nshelp_relatedtopics",
			".nshelp_important",
		},
	}
}

func (s Selectors) withDefaults() Selectors {
	def := DefaultSelectors()
	if strings.TrimSpace(s.Region) == "" {
		s.Region = def.Region
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = def.Title
	}
	if strings.TrimSpace(s.Breadcrumb) == "" {
		s.Breadcrumb = def.Breadcrumb
	}
	if len(s.Containers) == 0 {
		s.Containers = def.Containers
	}
	if s.Remove == nil {
		s.Remove = def.Remove
	}
	return s
}

// Cleaner turns a page snapshot into a Page.
type Cleaner struct {
	sel    Selectors
	policy *bluemonday.Policy
}

func NewCleaner(sel Selectors) *Cleaner {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class", "id").Globally()
	policy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return &Cleaner{sel: sel.withDefaults(), policy: policy}
}

// Clean extracts title, breadcrumb and content from a full page. Relative
// links in the content are resolved against base. Source is left for the
// caller.
func (c *Cleaner) Clean(markup, base string) (Page, error) {
	doc, err := parse.NewDocument(markup)
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}
	page := Page{
		Title:      parse.TextOf(doc.Selection, c.sel.Title),
		Breadcrumb: parse.JoinedText(doc.Find(c.sel.Breadcrumb).First(), " > "),
	}
	if page.Title == "" {
		page.Title = windowTitle(doc)
	}

	container := parse.FirstMatch(doc.Selection, c.sel.Containers)
	if container.Length() == 0 {
		page.Content = placeholderContent
		page.Placeholder = true
		return page, nil
	}
	parse.Strip(container, c.sel.Remove)
	parse.ResolveLinks(container, base)
	raw, err := goquery.OuterHtml(container)
	if err != nil {
		return Page{}, fmt.Errorf("render content: %w", err)
	}
	page.Content = strings.TrimSpace(c.policy.Sanitize(raw))
	return page, nil
}

// windowTitle uses the document title up to the first " - " separator.
func windowTitle(doc *goquery.Document) string {
	t := parse.TextOf(doc.Selection, "title")
	if i := strings.Index(t, " - "); i > 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
