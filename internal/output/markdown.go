package output

import (
	"bufio"
	"fmt"
	"strings"

	"helptree/internal/markdown"
)

type markdownFormatter struct {
	conv *markdown.Converter
}

func newMarkdownFormatter() markdownFormatter {
	return markdownFormatter{conv: markdown.NewConverter()}
}

func (m markdownFormatter) header(w *bufio.Writer, h Header) error {
	fmt.Fprintf(w, "# %s\n\n", h.Title)
	if h.Subject != "" {
		fmt.Fprintf(w, "**Subject:** %s\n\n", h.Subject)
	}
	fmt.Fprintf(w, "_Generated on: %s_\n\n", h.Generated.Format("2006-01-02 15:04:05"))
	if h.RunID != "" {
		fmt.Fprintf(w, "_Run: `%s`_\n\n", h.RunID)
	}
	_, err := w.WriteString("---\n\n")
	return err
}

func (m markdownFormatter) record(w *bufio.Writer, r Record) error {
	if r.Failed {
		_, err := fmt.Fprintf(w, "## %s\n\n> [!ERROR]\n> %s\n\n---\n\n", r.Title, quoteLines(r.Err))
		return err
	}
	body, err := m.conv.Page(r.Title, 2, r.Content)
	if err != nil {
		return fmt.Errorf("convert %q: %w", r.Title, err)
	}
	heading, rest, _ := strings.Cut(body, "\n")
	fmt.Fprintf(w, "%s\n\n", heading)
	fmt.Fprintf(w, "**Source:** <%s>\n\n", r.Source)
	if r.Breadcrumb != "" {
		fmt.Fprintf(w, "**Path:** `%s`\n\n", r.Breadcrumb)
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		fmt.Fprintf(w, "%s\n\n", rest)
	}
	_, err = w.WriteString("---\n\n")
	return err
}

func (m markdownFormatter) footer(w *bufio.Writer, records int) error {
	_, err := fmt.Fprintf(w, "_%s_\n", footerLine(records))
	return err
}

func quoteLines(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
}
