// Package remotetest provides an in-memory help center that implements
// remote.Browser. It renders a lazily expanding tree the way the hosted help
// center does and invalidates every handle on each DOM mutation.
package remotetest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"helptree/internal/remote"
)

// Node is one entry of the simulated tree.
type Node struct {
	ID       string
	Label    string
	Folder   bool
	Children []*Node

	// Expanded renders the folder open after every navigation.
	Expanded bool
	// Regrow adds a new collapsed child folder each time the folder opens.
	Regrow bool
	// Hidden renders the node with display:none.
	Hidden bool

	// NoTrigger renders a leaf without its click handler.
	NoTrigger bool
	// Stall makes a click on the leaf leave the content region untouched.
	Stall bool
	// Bare renders Content without the page container around it.
	Bare    bool
	Title   string
	Content string
}

func Folder(id, label string, children ...*Node) *Node {
	return &Node{ID: id, Label: label, Folder: true, Children: children}
}

func Leaf(id, label string) *Node {
	return &Node{ID: id, Label: label, Content: "<p>Body of " + html.EscapeString(label) + "</p>"}
}

// Login describes the simulated sign-in flow.
type Login struct {
	URL      string
	Landing  string
	Email    string
	Password string
	// Question enables the challenge step when set.
	Question string
	Answer   string
}

type page int

const (
	pageBlank page = iota
	pageLogin
	pageChallenge
	pageLanding
	pageTree
)

type element struct {
	gen int
	sel *goquery.Selection
}

// Widget is a remote.Browser over a simulated help center. It is safe for
// concurrent use but a run drives it from one goroutine.
type Widget struct {
	mu sync.Mutex

	treeURL string
	roots   []*Node
	byID    map[string]*Node
	parent  map[string]*Node
	login   *Login

	page     page
	location string
	expanded map[string]bool
	open     *Node
	fields   map[string]string
	regrows  int

	gen int
	doc *goquery.Document

	failClicks  int
	clicks      []string
	navigations []string
	closed      bool
}

var _ remote.Browser = (*Widget)(nil)

func New(treeURL string, roots ...*Node) *Widget {
	w := &Widget{
		treeURL:  treeURL,
		roots:    roots,
		byID:     map[string]*Node{},
		parent:   map[string]*Node{},
		expanded: map[string]bool{},
		fields:   map[string]string{},
	}
	for _, r := range roots {
		w.index(r, nil)
	}
	w.render()
	return w
}

func (w *Widget) WithLogin(l Login) *Widget {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.login = &l
	return w
}

// FailClicks makes the next n clicks report a stale handle without effect.
func (w *Widget) FailClicks(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failClicks = n
}

// Clicks lists effective clicks as "toggle:<id>", "open:<id>" or "submit:<id>".
func (w *Widget) Clicks() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.clicks...)
}

func (w *Widget) ToggleClicks() int {
	n := 0
	for _, c := range w.Clicks() {
		if strings.HasPrefix(c, "toggle:") {
			n++
		}
	}
	return n
}

func (w *Widget) Navigations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.navigations...)
}

func (w *Widget) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Widget) IsExpanded(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expanded[id]
}

func (w *Widget) index(n *Node, parent *Node) {
	if n.ID != "" {
		w.byID[n.ID] = n
		if parent != nil {
			w.parent[n.ID] = parent
		}
	}
	for _, c := range n.Children {
		w.index(c, n)
	}
}

func (w *Widget) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("navigate %s: browser closed", url)
	}
	w.navigations = append(w.navigations, url)
	w.location = url
	w.open = nil
	switch {
	case w.login != nil && url == w.login.URL:
		w.page = pageLogin
	case url == w.treeURL:
		w.page = pageTree
		w.expanded = map[string]bool{}
		for id, n := range w.byID {
			if n.Folder && n.Expanded {
				w.expanded[id] = true
			}
		}
	default:
		w.page = pageBlank
	}
	w.render()
	return nil
}

func (w *Widget) FindOne(ctx context.Context, scope remote.Element, q remote.Query) (remote.Element, error) {
	all, err := w.FindAll(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, q)
	}
	return all[0], nil
}

func (w *Widget) FindAll(ctx context.Context, scope remote.Element, q remote.Query) ([]remote.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	root := w.doc.Selection
	if scope != nil {
		s, err := w.resolve(scope)
		if err != nil {
			return nil, err
		}
		root = s
	}
	var out []remote.Element
	root.Find(q.CSS).Each(func(_ int, s *goquery.Selection) {
		if q.Text != "" && remote.NormalizeText(s.Text()) != q.Text {
			return
		}
		if q.Visible && hidden(s) {
			return
		}
		out = append(out, &element{gen: w.gen, sel: s})
	})
	return out, nil
}

const hiddenCSS = "[hidden], [style*='display:none']"

func hidden(s *goquery.Selection) bool {
	return s.Is(hiddenCSS) || s.ParentsFiltered(hiddenCSS).Length() > 0
}

func (w *Widget) Closest(ctx context.Context, el remote.Element, css string) (remote.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolve(el)
	if err != nil {
		return nil, err
	}
	found := s.Parent().Closest(css)
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: ancestor %s", remote.ErrNotFound, css)
	}
	return &element{gen: w.gen, sel: found.First()}, nil
}

func (w *Widget) Attribute(ctx context.Context, el remote.Element, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolve(el)
	if err != nil {
		return "", err
	}
	return s.AttrOr(name, ""), nil
}

func (w *Widget) Text(ctx context.Context, el remote.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolve(el)
	if err != nil {
		return "", err
	}
	return remote.NormalizeText(s.Text()), nil
}

func (w *Widget) ScrollIntoView(ctx context.Context, el remote.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.resolve(el)
	return err
}

func (w *Widget) Fill(ctx context.Context, el remote.Element, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolve(el)
	if err != nil {
		return err
	}
	w.fields[fieldKey(s)] = value
	return nil
}

func (w *Widget) ReadMarkup(ctx context.Context, el remote.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if el == nil {
		return w.doc.Html()
	}
	s, err := w.resolve(el)
	if err != nil {
		return "", err
	}
	return goquery.OuterHtml(s)
}

func (w *Widget) CurrentLocation(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.location, nil
}

func (w *Widget) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *Widget) Click(ctx context.Context, el remote.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolve(el)
	if err != nil {
		return err
	}
	if w.failClicks > 0 {
		w.failClicks--
		w.render()
		return fmt.Errorf("%w: simulated detach", remote.ErrStale)
	}

	id := s.AttrOr("id", "")
	switch {
	case strings.HasSuffix(id, "_ti") && w.page == pageTree:
		w.toggle(strings.TrimSuffix(id, "_ti"))
	case id == "login-submit" && w.page == pageLogin:
		w.clicks = append(w.clicks, "submit:"+id)
		w.submitLogin()
	case s.AttrOr("name", "") == "submitter" && w.page == pageChallenge:
		w.clicks = append(w.clicks, "submit:submitter")
		w.submitAnswer()
	case w.page == pageTree && s.AttrOr("isfolder", "") == "0":
		w.openLeaf(s)
	default:
		return nil
	}
	w.render()
	return nil
}

func (w *Widget) toggle(id string) {
	n, ok := w.byID[id]
	if !ok || !n.Folder {
		return
	}
	w.clicks = append(w.clicks, "toggle:"+id)
	w.expanded[id] = !w.expanded[id]
	if w.expanded[id] && n.Regrow {
		w.regrows++
		child := &Node{ID: fmt.Sprintf("%s_%d", id, 900+w.regrows), Label: fmt.Sprintf("More %d", w.regrows), Folder: true, Regrow: true}
		n.Children = append(n.Children, child)
		w.index(child, n)
	}
}

func (w *Widget) openLeaf(s *goquery.Selection) {
	if _, ok := s.Attr("onclick"); !ok {
		return
	}
	id := s.AttrOr("id", "")
	n, ok := w.byID[id]
	if !ok {
		return
	}
	w.clicks = append(w.clicks, "open:"+id)
	if n.Stall {
		return
	}
	w.open = n
	w.location = w.treeURL + "#" + id
}

func (w *Widget) submitLogin() {
	if w.fields["email"] != w.login.Email || w.fields["password"] != w.login.Password {
		return
	}
	if w.login.Question != "" {
		w.page = pageChallenge
		w.location = w.login.URL + "?challenge=1"
		return
	}
	w.page = pageLanding
	w.location = w.login.Landing
}

func (w *Widget) submitAnswer() {
	if w.fields["answer"] != w.login.Answer {
		return
	}
	w.page = pageLanding
	w.location = w.login.Landing
}

func (w *Widget) resolve(el remote.Element) (*goquery.Selection, error) {
	e, ok := el.(*element)
	if !ok || e == nil {
		return nil, fmt.Errorf("remotetest: unexpected element %T", el)
	}
	if e.gen != w.gen {
		return nil, fmt.Errorf("%w: handle from generation %d, page is at %d", remote.ErrStale, e.gen, w.gen)
	}
	return e.sel, nil
}

func fieldKey(s *goquery.Selection) string {
	if id := s.AttrOr("id", ""); id != "" {
		return id
	}
	return s.AttrOr("name", "")
}
