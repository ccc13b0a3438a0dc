// Package remote abstracts the live browser page the tree walker drives.
//
// Every call is a blocking round trip to the page. Element handles are only
// valid until the next navigation or DOM mutation; callers re-resolve by a
// stable key instead of keeping them.
package remote

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("element not found")
	ErrStale    = errors.New("element is no longer attached to the page")
	ErrTimeout  = errors.New("wait timed out")
)

// Element is an opaque handle owned by the Browser that produced it.
type Element any

// Query selects elements by CSS, optionally narrowed to an exact
// whitespace-normalized text and to visible elements.
type Query struct {
	CSS     string
	Text    string
	Visible bool
}

func CSS(selector string) Query {
	return Query{CSS: selector}
}

// ByID matches an element by its id attribute. Ids in the help tree start
// with digits often enough that the #id form is unsafe.
func ByID(id string) Query {
	return Query{CSS: `[id="` + strings.ReplaceAll(id, `"`, `\"`) + `"]`}
}

func (q Query) WithText(text string) Query {
	q.Text = NormalizeText(text)
	return q
}

func (q Query) OnlyVisible() Query {
	q.Visible = true
	return q
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.CSS)
	if q.Text != "" {
		b.WriteString(` text="` + q.Text + `"`)
	}
	if q.Visible {
		b.WriteString(" :visible")
	}
	return b.String()
}

// Browser is one page of a live browsing session. A nil scope means the
// whole document.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	FindOne(ctx context.Context, scope Element, q Query) (Element, error)
	FindAll(ctx context.Context, scope Element, q Query) ([]Element, error)
	// Closest returns the nearest ancestor of el (excluding el) matching css.
	Closest(ctx context.Context, el Element, css string) (Element, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(ctx context.Context, el Element, name string) (string, error)
	Text(ctx context.Context, el Element) (string, error)
	// Click dispatches a programmatic click, not a pointer event.
	Click(ctx context.Context, el Element) error
	ScrollIntoView(ctx context.Context, el Element) error
	Fill(ctx context.Context, el Element, value string) error
	// ReadMarkup returns the outer HTML of el, or the whole page when el is nil.
	ReadMarkup(ctx context.Context, el Element) (string, error)
	CurrentLocation(ctx context.Context) (string, error)
	Close() error
}

func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Retryable reports whether err is worth another poll.
func Retryable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStale)
}

func staleMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not attached to the dom") ||
		strings.Contains(msg, "element is detached") ||
		strings.Contains(msg, "cannot find context with specified id") ||
		strings.Contains(msg, "execution context was destroyed") ||
		strings.Contains(msg, "could not find node with given id")
}
