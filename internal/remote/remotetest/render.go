package remotetest

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// render rebuilds the document and invalidates all outstanding handles.
// Callers hold w.mu.
func (w *Widget) render() {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>")
	b.WriteString(html.EscapeString(w.title()))
	b.WriteString("</title></head><body>")
	switch w.page {
	case pageLogin:
		b.WriteString(`<form id="login"><input id="email" name="email"><input id="password" name="password" type="password">`)
		b.WriteString(`<button id="login-submit" type="button">Log In</button></form>`)
	case pageChallenge:
		b.WriteString(`<table class="challenge"><tr><td>Question:</td><td>`)
		b.WriteString(html.EscapeString(w.login.Question))
		b.WriteString(`</td></tr><tr><td>Answer:</td><td><input name="answer" type="password"></td></tr></table>`)
		b.WriteString(`<button name="submitter" type="button">Submit</button>`)
	case pageLanding:
		b.WriteString(`<div id="dashboard">Home</div>`)
	case pageTree:
		b.WriteString(`<div id="helpcenter_tree">`)
		for _, n := range w.roots {
			w.renderNode(&b, n)
		}
		b.WriteString(`</div>`)
		if w.open != nil {
			w.renderContent(&b, w.open)
		}
	}
	b.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	if err != nil {
		panic("remotetest: render: " + err.Error())
	}
	w.doc = doc
	w.gen++
}

func (w *Widget) title() string {
	switch w.page {
	case pageLogin, pageChallenge:
		return "Login"
	case pageLanding:
		return "Home"
	case pageTree:
		if w.open != nil {
			return w.open.Label + " - Help Center"
		}
		return "Help Center"
	}
	return ""
}

func (w *Widget) renderNode(b *strings.Builder, n *Node) {
	if !n.Folder {
		b.WriteString(`<span isfolder="0"`)
		if n.Hidden {
			b.WriteString(` style="display:none"`)
		}
		if n.ID != "" {
			b.WriteString(` id="` + html.EscapeString(n.ID) + `"`)
		}
		if !n.NoTrigger {
			b.WriteString(` onclick="nlShowHelp('` + html.EscapeString(n.ID) + `')"`)
		}
		b.WriteString(`>` + html.EscapeString(n.Label) + `</span>`)
		return
	}

	id := html.EscapeString(n.ID)
	glyph := "plus.png"
	if w.expanded[n.ID] {
		glyph = "minus.png"
	}
	b.WriteString(`<span id="` + id + `" class="treenode"`)
	if n.Hidden {
		b.WriteString(` style="display:none"`)
	}
	b.WriteString(`>`)
	b.WriteString(`<img id="` + id + `_ti" src="/images/tree/` + glyph + `">`)
	b.WriteString(`<span isfolder="1">` + html.EscapeString(n.Label) + `</span>`)
	if w.expanded[n.ID] {
		b.WriteString(`<div id="` + id + `_c">`)
		for _, c := range n.Children {
			w.renderNode(b, c)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</span>`)
}

func (w *Widget) renderContent(b *strings.Builder, n *Node) {
	b.WriteString(`<div id="helpcenter_content"><div id="ns_navigation">`)
	for _, crumb := range w.crumbs(n) {
		b.WriteString(`<a href="#">` + html.EscapeString(crumb) + `</a>`)
	}
	b.WriteString(`</div>`)
	title := n.Title
	if title == "" {
		title = n.Label
	}
	if title != "-" {
		b.WriteString(`<h1 class="nshelp_title">` + html.EscapeString(title) + `</h1>`)
	}
	if n.Bare {
		b.WriteString(n.Content)
	} else {
		b.WriteString(`<div class="nshelp_page"><div class="nshelp_navheader">Previous | Next</div>`)
		b.WriteString(n.Content)
		b.WriteString(`<div class="nshelp_relatedtopics">Related Topics</div>`)
		b.WriteString(`<div id="helpcenter_feedback">Was this helpful?</div>`)
		b.WriteString(`<div id="nshelp_footer">General Notices</div></div>`)
	}
	b.WriteString(`</div>`)
}

func (w *Widget) crumbs(n *Node) []string {
	var labels []string
	for p := w.parent[n.ID]; p != nil; p = w.parent[p.ID] {
		labels = append([]string{p.Label}, labels...)
	}
	return labels
}
