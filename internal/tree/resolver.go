package tree

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"helptree/internal/remote"
)

// ResolverStats counts work done by a Resolver since it was created.
type ResolverStats struct {
	Lookups    int
	Expansions int
}

// Resolver brings folders and nodes into view by expanding their ancestors.
type Resolver struct {
	nav
	stats ResolverStats
}

func NewResolver(b remote.Browser, opts Options) *Resolver {
	return &Resolver{nav: newNav(b, opts)}
}

func (r *Resolver) Stats() ResolverStats { return r.stats }

// Resolve follows path from the given container, expanding each folder on
// the way, and returns the last folder.
func (r *Resolver) Resolve(ctx context.Context, path PathSpec, from Container) (Container, error) {
	if len(path) == 0 {
		return from, errors.New("resolve: empty path")
	}
	cur := from
	for _, label := range path {
		id, err := r.locate(ctx, cur, label)
		if err != nil {
			if ctx.Err() != nil {
				return cur, ctx.Err()
			}
			return cur, &ResolutionError{Label: label, Err: fmt.Errorf("%w under %s: %v", ErrLabelNotFound, cur, err)}
		}
		clicked, err := r.expandIfCollapsed(ctx, id)
		if clicked {
			r.stats.Expansions++
		}
		if err != nil {
			return cur, &ResolutionError{Label: label, ID: id, Err: err}
		}
		r.log.Debug("resolved label", zap.String("label", label), zap.String("id", string(id)), zap.Bool("expanded", clicked))
		cur = Container{ID: id}
	}
	return cur, nil
}

// locate waits for a visible folder labelled label inside c and returns the
// id of its node container.
func (r *Resolver) locate(ctx context.Context, c Container, label string) (NodeID, error) {
	r.stats.Lookups++
	sel := r.opts.Selectors
	q := remote.CSS(sel.Folder).WithText(label).OnlyVisible()
	scope := r.scope(c, true)

	var id string
	cond := func(ctx context.Context) (remote.Element, bool, error) {
		root, err := scope(ctx)
		if err != nil {
			return nil, false, err
		}
		el, err := r.b.FindOne(ctx, root, q)
		if err != nil {
			return nil, false, err
		}
		node, err := r.b.Closest(ctx, el, sel.NodeContainer)
		if err != nil {
			return nil, false, err
		}
		id, err = r.b.Attribute(ctx, node, "id")
		if err != nil {
			return nil, false, err
		}
		return node, id != "", nil
	}
	if _, err := remote.WaitUntil(ctx, r.opts.ResolveTimeout, cond); err != nil {
		return "", err
	}
	return NodeID(id), nil
}

// Reveal expands every ancestor of id and waits until the node itself is
// present. Each prefix is waited for as long as a path label would be. A
// prefix is passed over once a longer prefix (or id itself) is rendered while
// it is not, since a real collapsed folder hides everything below it.
func (r *Resolver) Reveal(ctx context.Context, id NodeID) error {
	ancestors := id.Ancestors(r.opts.Selectors.IDSeparator)
	for i, prefix := range ancestors {
		chain := append(append([]NodeID{}, ancestors[i:]...), id)
		found, err := r.firstRendered(ctx, chain)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ResolutionError{ID: id, Err: fmt.Errorf("%w: ancestor %s: %v", ErrLabelNotFound, prefix, err)}
		}
		if found != prefix {
			continue
		}
		clicked, err := r.expandIfCollapsed(ctx, prefix)
		if clicked {
			r.stats.Expansions++
		}
		if err != nil {
			return &ResolutionError{ID: id, Err: err}
		}
	}
	if _, err := remote.WaitUntil(ctx, r.opts.ResolveTimeout, remote.Present(r.b, nil, remote.ByID(string(id)))); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ResolutionError{ID: id, Err: fmt.Errorf("%w: %v", ErrLabelNotFound, err)}
	}
	return nil
}

// firstRendered waits until one of chain is present and returns the
// shortest one found.
func (r *Resolver) firstRendered(ctx context.Context, chain []NodeID) (NodeID, error) {
	r.stats.Lookups++
	var found NodeID
	cond := func(ctx context.Context) (remote.Element, bool, error) {
		for _, candidate := range chain {
			el, err := r.b.FindOne(ctx, nil, remote.ByID(string(candidate)))
			if errors.Is(err, remote.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, false, err
			}
			found = candidate
			return el, true, nil
		}
		return nil, false, remote.ErrNotFound
	}
	if _, err := remote.WaitUntil(ctx, r.opts.ResolveTimeout, cond); err != nil {
		return "", err
	}
	return found, nil
}
