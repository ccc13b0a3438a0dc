// Package extract opens one help page at a time and pulls its cleaned
// content out of the live document.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"helptree/internal/remote"
	"helptree/internal/tree"
)

// ErrNotActionable marks a leaf with no click handler bound.
var ErrNotActionable = errors.New("leaf has no click trigger")

type Kind int

const (
	NotActionable Kind = iota + 1
	Resolution
	ContentRegionTimeout
	Browser
)

func (k Kind) String() string {
	switch k {
	case NotActionable:
		return "not actionable"
	case Resolution:
		return "resolution"
	case ContentRegionTimeout:
		return "content region timeout"
	case Browser:
		return "browser"
	}
	return "unknown"
}

type ExtractError struct {
	ID   tree.NodeID
	Kind Kind
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.ID, e.Kind, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Page is the cleaned content of one help page.
type Page struct {
	Title      string
	Source     string
	Breadcrumb string
	Content    string
	// Placeholder is set when the page had no recognizable content container.
	Placeholder bool
}

type Status int

const (
	Captured Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Captured:
		return "captured"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the typed result of visiting one leaf.
type Outcome struct {
	Leaf     tree.Leaf
	Status   Status
	Page     Page
	Err      error
	Duration time.Duration
}

type Options struct {
	// RootURL is reloaded before every leaf.
	RootURL        string
	Tree           tree.Options
	Content        Selectors
	NavTimeout     time.Duration
	ContentTimeout time.Duration
	// ScrollPause is slept between scrolling a leaf into view and clicking it.
	ScrollPause time.Duration
	Logger      *zap.Logger
}

type Extractor struct {
	b        remote.Browser
	resolver *tree.Resolver
	opts     Options
	cleaner  *Cleaner
	log      *zap.Logger
}

func New(b remote.Browser, opts Options) *Extractor {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.ContentTimeout <= 0 {
		opts.ContentTimeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tree.Logger == nil {
		opts.Tree.Logger = opts.Logger
	}
	opts.Tree = opts.Tree.WithDefaults()
	opts.Content = opts.Content.withDefaults()
	return &Extractor{
		b:        b,
		resolver: tree.NewResolver(b, opts.Tree),
		opts:     opts,
		cleaner:  NewCleaner(opts.Content),
		log:      opts.Logger,
	}
}

// Visit extracts leaf and folds any error into the outcome.
func (x *Extractor) Visit(ctx context.Context, leaf tree.Leaf) Outcome {
	start := time.Now()
	page, err := x.Extract(ctx, leaf)
	out := Outcome{Leaf: leaf, Page: page, Err: err, Duration: time.Since(start)}
	switch {
	case err == nil:
		out.Status = Captured
	case errors.Is(err, ErrNotActionable):
		out.Status = Skipped
	default:
		out.Status = Failed
	}
	return out
}

// Extract reloads the help center, reveals leaf, opens it and returns its
// cleaned content.
func (x *Extractor) Extract(ctx context.Context, leaf tree.Leaf) (Page, error) {
	id := leaf.ID
	if err := x.b.Navigate(ctx, x.opts.RootURL); err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	ready := x.opts.Tree.Selectors.Ready()
	if _, err := remote.WaitUntil(ctx, x.opts.NavTimeout, remote.Present(x.b, nil, ready)); err != nil {
		return Page{}, x.fail(id, Resolution, fmt.Errorf("tree did not render: %w", err))
	}
	if err := x.resolver.Reveal(ctx, id); err != nil {
		return Page{}, x.fail(id, Resolution, err)
	}

	node, err := x.b.FindOne(ctx, nil, remote.ByID(string(id)))
	if err != nil {
		return Page{}, x.fail(id, Resolution, err)
	}
	trigger, err := x.b.Attribute(ctx, node, x.opts.Tree.Selectors.TriggerAttr)
	if err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	if trigger == "" {
		return Page{}, x.fail(id, NotActionable, ErrNotActionable)
	}
	label := leaf.Label
	if label == "" {
		label, _ = x.b.Text(ctx, node)
	}

	baseline, err := x.regionMarkup(ctx)
	if err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	if err := x.open(ctx, id, node); err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	if err := x.waitForContent(ctx, baseline); err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, x.fail(id, ContentRegionTimeout, err)
	}

	source, err := x.b.CurrentLocation(ctx)
	if err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	markup, err := x.b.ReadMarkup(ctx, nil)
	if err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	page, err := x.cleaner.Clean(markup, source)
	if err != nil {
		return Page{}, x.fail(id, Browser, err)
	}
	page.Source = source
	if page.Title == "" {
		page.Title = label
	}
	if page.Title == "" {
		page.Title = "Untitled"
	}
	if page.Placeholder {
		x.log.Warn("content container missing, writing placeholder", zap.String("id", string(id)))
	}
	return page, nil
}

// open scrolls the leaf into view and clicks it, re-finding it once if the
// handle went stale in between.
func (x *Extractor) open(ctx context.Context, id tree.NodeID, node remote.Element) error {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			var err error
			node, err = x.b.FindOne(ctx, nil, remote.ByID(string(id)))
			if err != nil {
				return err
			}
		}
		err := x.b.ScrollIntoView(ctx, node)
		if err == nil {
			if err = remote.Sleep(ctx, x.opts.ScrollPause); err != nil {
				return err
			}
			err = x.b.Click(ctx, node)
		}
		if !errors.Is(err, remote.ErrStale) {
			return err
		}
		x.log.Debug("leaf went stale before click", zap.String("id", string(id)))
	}
	return fmt.Errorf("%w: leaf %s", remote.ErrStale, id)
}

func (x *Extractor) regionMarkup(ctx context.Context) (string, error) {
	el, err := x.b.FindOne(ctx, nil, remote.CSS(x.opts.Content.Region))
	if errors.Is(err, remote.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return x.b.ReadMarkup(ctx, el)
}

// waitForContent waits until the content region exists and no longer
// matches the markup it had before the click.
func (x *Extractor) waitForContent(ctx context.Context, baseline string) error {
	region := remote.CSS(x.opts.Content.Region)
	cond := func(ctx context.Context) (remote.Element, bool, error) {
		el, err := x.b.FindOne(ctx, nil, region)
		if err != nil {
			return nil, false, err
		}
		markup, err := x.b.ReadMarkup(ctx, el)
		if err != nil {
			return nil, false, err
		}
		return el, markup != baseline, nil
	}
	_, err := remote.WaitUntil(ctx, x.opts.ContentTimeout, cond)
	return err
}

func (x *Extractor) fail(id tree.NodeID, kind Kind, err error) error {
	return &ExtractError{ID: id, Kind: kind, Err: err}
}
