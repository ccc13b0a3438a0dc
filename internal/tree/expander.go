package tree

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"helptree/internal/remote"
)

// Expander opens every collapsed folder under a container.
type Expander struct {
	nav
}

func NewExpander(b remote.Browser, opts Options) *Expander {
	return &Expander{nav: newNav(b, opts)}
}

// ExpandFully clicks collapsed toggles under c one at a time, rescanning
// after each click, until none are left. Each click can replace the subtree
// markup, so a scan is never reused. At most MaxPasses toggles are clicked;
// one more scan decides whether the last click settled the subtree. It
// returns the number of clicks.
func (e *Expander) ExpandFully(ctx context.Context, c Container) (int, error) {
	collapsed := e.opts.Selectors.collapsed()
	clicks := 0
	for pass := 1; pass <= e.opts.MaxPasses+1; pass++ {
		if err := ctx.Err(); err != nil {
			return clicks, err
		}
		scope, err := e.element(ctx, c, false)
		if err != nil {
			if errors.Is(err, remote.ErrStale) {
				e.log.Debug("container went stale, rescanning", zap.Int("pass", pass))
				continue
			}
			return clicks, err
		}
		toggle, err := e.b.FindOne(ctx, scope, collapsed)
		if errors.Is(err, remote.ErrNotFound) {
			e.log.Debug("subtree fully expanded", zap.String("container", c.String()), zap.Int("clicks", clicks), zap.Int("passes", pass))
			return clicks, nil
		}
		if errors.Is(err, remote.ErrStale) {
			e.log.Debug("scan went stale, rescanning", zap.Int("pass", pass))
			continue
		}
		if err != nil {
			return clicks, err
		}
		if pass > e.opts.MaxPasses {
			break
		}
		if err := e.b.Click(ctx, toggle); err != nil {
			if errors.Is(err, remote.ErrStale) {
				e.log.Debug("toggle went stale, rescanning", zap.Int("pass", pass))
				continue
			}
			return clicks, err
		}
		clicks++
		if err := remote.Sleep(ctx, e.opts.Settle); err != nil {
			return clicks, err
		}
	}
	return clicks, &ExpansionError{Container: c, Passes: e.opts.MaxPasses, Clicks: clicks}
}
