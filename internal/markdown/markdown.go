// Package markdown renders cleaned help-page fragments as Markdown.
package markdown

import (
	"regexp"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

var langClass = regexp.MustCompile(`(?:^|\s)(?:language|lang)-([a-zA-Z0-9_+-]+)(?:\s|$)`)

type Converter struct {
	md *htmltomd.Converter
}

func NewConverter() *Converter {
	conv := htmltomd.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	conv.Use(TablePlugin())
	conv.Use(CalloutPlugin())
	conv.AddRules(codeBlockRule())
	conv.Remove("button")
	return &Converter{md: conv}
}

// Fragment converts an HTML fragment.
func (c *Converter) Fragment(html string) (string, error) {
	out, err := c.md.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Page renders a heading of the given level followed by the converted body.
func (c *Converter) Page(title string, level int, contentHTML string) (string, error) {
	if level < 1 {
		level = 1
	}
	heading := strings.TrimSpace(strings.Repeat("#", level) + " " + title)
	body, err := c.Fragment(contentHTML)
	if err != nil {
		return "", err
	}
	if body == "" {
		return heading + "\n", nil
	}
	return heading + "\n\n" + body + "\n", nil
}

func codeBlockRule() htmltomd.Rule {
	return htmltomd.Rule{
		Filter: []string{"pre"},
		Replacement: func(_ string, selec *goquery.Selection, _ *htmltomd.Options) *string {
			if selec == nil {
				empty := ""
				return &empty
			}
			// Help pages put a copy button inside <pre>; work on a copy
			// without it.
			pre := selec.Clone()
			pre.Find("button").Remove()
			code := pre.Find("code").First()
			source := code
			if code.Length() == 0 {
				// Prism-highlighted help pages often put tokens straight in <pre>.
				source = pre
			}

			lang := detectLanguage(code)
			if lang == "" {
				lang = detectLanguage(pre)
			}
			text := strings.ReplaceAll(source.Text(), "\r\n", "\n")
			text = strings.TrimSuffix(text, "\n")

			fence := "```"
			for strings.Contains(text, fence) {
				fence += "`"
			}
			out := "\n" + fence + lang + "\n" + text + "\n" + fence + "\n"
			return &out
		},
	}
}

func detectLanguage(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	m := langClass.FindStringSubmatch(strings.TrimSpace(sel.AttrOr("class", "")))
	if len(m) != 2 {
		return ""
	}
	switch lang := strings.ToLower(m[1]); lang {
	case "js":
		return "javascript"
	case "golang":
		return "go"
	default:
		return lang
	}
}
