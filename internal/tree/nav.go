package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"helptree/internal/remote"
)

const staleRetries = 3

// nav holds the lookups every walker needs.
type nav struct {
	b    remote.Browser
	opts Options
	log  *zap.Logger
}

func newNav(b remote.Browser, opts Options) nav {
	opts = opts.WithDefaults()
	return nav{b: b, opts: opts, log: opts.Logger}
}

// element re-finds a container. With inner set, a node resolves to its child
// container when one is rendered.
func (n nav) element(ctx context.Context, c Container, inner bool) (remote.Element, error) {
	if c.IsRoot() {
		if n.opts.Selectors.Root == "" {
			return nil, nil
		}
		return n.b.FindOne(ctx, nil, remote.CSS(n.opts.Selectors.Root))
	}
	if inner {
		el, err := n.b.FindOne(ctx, nil, remote.ByID(string(c.ID)+n.opts.Selectors.ChildSuffix))
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, remote.ErrNotFound) {
			return nil, err
		}
	}
	return n.b.FindOne(ctx, nil, remote.ByID(string(c.ID)))
}

func (n nav) scope(c Container, inner bool) func(context.Context) (remote.Element, error) {
	return func(ctx context.Context) (remote.Element, error) {
		return n.element(ctx, c, inner)
	}
}

// expandIfCollapsed opens node id when its toggle shows the collapsed glyph
// and waits for the child container. It reports whether it clicked.
func (n nav) expandIfCollapsed(ctx context.Context, id NodeID) (bool, error) {
	sel := n.opts.Selectors
	var clicked bool
	err := retryStale(ctx, func() error {
		toggle, err := n.b.FindOne(ctx, nil, remote.ByID(string(id)+sel.ToggleSuffix))
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		glyph, err := n.b.Attribute(ctx, toggle, sel.CollapsedAttr)
		if err != nil {
			return err
		}
		if !strings.Contains(glyph, sel.CollapsedMarker) {
			return nil
		}
		if err := n.b.Click(ctx, toggle); err != nil {
			return err
		}
		clicked = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("expand %s: %w", id, err)
	}
	if !clicked {
		return false, nil
	}
	n.log.Debug("expanded node", zap.String("id", string(id)))
	child := remote.ByID(string(id) + sel.ChildSuffix)
	if _, err := remote.WaitUntil(ctx, n.opts.ResolveTimeout, remote.Present(n.b, nil, child)); err != nil {
		return true, fmt.Errorf("children of %s did not appear: %w", id, err)
	}
	return true, nil
}

// retryStale runs fn again when it fails on a detached handle.
func retryStale(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < staleRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = fn()
		if !errors.Is(err, remote.ErrStale) {
			return err
		}
	}
	return err
}
