package markdown

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var calloutKinds = []struct {
	marker string
	title  string
}{
	{"warning", "Warning"},
	{"caution", "Warning"},
	{"important", "Important"},
	{"note", "Note"},
	{"tip", "Tip"},
	{"info", "Info"},
}

// CalloutPlugin renders help-center note boxes (div.nshelp_note and friends)
// as quoted blocks and definition lists as bold terms.
func CalloutPlugin() md.Plugin {
	return func(conv *md.Converter) []md.Rule {
		return []md.Rule{
			{
				Filter: []string{"div", "aside", "p"},
				Replacement: func(content string, selec *goquery.Selection, _ *md.Options) *string {
					title := calloutTitle(selec.AttrOr("class", ""))
					if title == "" {
						return nil
					}
					out := quote(title, content)
					return &out
				},
			},
			{
				Filter: []string{"dt"},
				Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
					out := "\n**" + strings.TrimSpace(content) + "**\n"
					return &out
				},
			},
			{
				Filter: []string{"dd"},
				Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
					out := ": " + strings.TrimSpace(content) + "\n"
					return &out
				},
			},
		}
	}
}

func calloutTitle(class string) string {
	for _, c := range strings.Fields(strings.ToLower(class)) {
		c = strings.TrimPrefix(c, "nshelp_")
		for _, k := range calloutKinds {
			if c == k.marker || c == k.marker+"box" {
				return k.title
			}
		}
	}
	return ""
}

func quote(title, content string) string {
	var b strings.Builder
	b.WriteString("\n> **" + title + "**\n")
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString(">\n")
			continue
		}
		b.WriteString("> " + line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
