package output

import (
	"bufio"
	"fmt"
	"html"
)

const stylesheet = `
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 1200px; margin: 0 auto; padding: 20px; }
        .archive-footer { color: #777; font-size: 0.9em; text-align: center; margin-top: 40px; }
        .scraped-page { border: 1px solid #ddd; border-radius: 8px; margin-bottom: 40px; padding: 20px; box-shadow: 0 2px 5px rgba(0,0,0,0.05); }
        .scraped-page.error { border-color: #d9534f; background-color: #f2dede; }
        .metadata { background-color: #f7f7f7; border: 1px solid #eee; padding: 10px; margin-bottom: 20px; border-radius: 4px; }
        .metadata p { margin: 5px 0; }
        .content-snippet { margin-top: 20px; }
        h1 { color: #1a0dab; border-bottom: 2px solid #eee; padding-bottom: 10px; margin-bottom: 5px; }
        .page-subtitle { color: #555; font-weight: 400; font-size: 1.3rem; margin-top: 0; margin-bottom: 25px; }
        table { border-collapse: collapse; width: 100%; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; vertical-align: top; }
        th { background-color: #f2f2f2; }
        code { font-family: "Courier New", Courier, monospace; }
        pre, pre[class*="language-"] { background-color: #f5f2f0 !important; color: #333; padding: 15px; margin: 20px 0; border-radius: 5px; overflow-x: auto; border: 1px solid #ddd; }
        /* highlighter tokens inherit the block colors */
        pre[class*="language-"] span, pre code span { background: none !important; color: inherit !important; text-shadow: none !important; }
`

type htmlFormatter struct{}

func (htmlFormatter) header(w *bufio.Writer, h Header) error {
	title := html.EscapeString(h.Title)
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>%s    </style>
</head>
<body>
    <h1>%s</h1>
    <h2 class="page-subtitle">%s</h2>
    <p>Generated on: %s</p>
`, title, stylesheet, title, html.EscapeString(h.Subject), h.Generated.Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	if h.RunID != "" {
		_, err = fmt.Fprintf(w, "    <p>Run: <code>%s</code></p>\n", html.EscapeString(h.RunID))
	}
	return err
}

func (htmlFormatter) record(w *bufio.Writer, r Record) error {
	if r.Failed {
		_, err := fmt.Fprintf(w, "<article class=\"scraped-page error\"><h1>%s</h1><p>Error: %s</p></article>\n\n",
			html.EscapeString(r.Title), html.EscapeString(r.Err))
		return err
	}
	src := html.EscapeString(r.Source)
	fmt.Fprintf(w, "<article class=\"scraped-page\">\n<h1>%s</h1>\n<div class=\"metadata\">\n", html.EscapeString(r.Title))
	fmt.Fprintf(w, "<p><strong>Source URL:</strong> <a href=\"%s\" target=\"_blank\">%s</a></p>\n", src, src)
	if r.Breadcrumb != "" {
		fmt.Fprintf(w, "<p><strong>Path:</strong> <code>%s</code></p>\n", html.EscapeString(r.Breadcrumb))
	}
	// Content is sanitized upstream and written as is.
	_, err := fmt.Fprintf(w, "</div>\n<hr>\n<div class=\"content-snippet\">\n%s\n</div>\n</article>\n\n", r.Content)
	return err
}

func (htmlFormatter) footer(w *bufio.Writer, records int) error {
	_, err := fmt.Fprintf(w, "<footer class=\"archive-footer\"><p>%s</p></footer>\n</body>\n</html>\n", footerLine(records))
	return err
}
