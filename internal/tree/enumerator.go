package tree

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"helptree/internal/remote"
)

// Enumerator lists the leaves of an expanded subtree.
type Enumerator struct {
	nav
}

func NewEnumerator(b remote.Browser, opts Options) *Enumerator {
	return &Enumerator{nav: newNav(b, opts)}
}

// CollectLeaves returns the leaves under c in document order. Leaves without
// an id cannot be revisited and are left out.
func (e *Enumerator) CollectLeaves(ctx context.Context, c Container) ([]Leaf, error) {
	var err error
	for attempt := 1; attempt <= staleRetries; attempt++ {
		var leaves []Leaf
		leaves, err = e.scan(ctx, c)
		if !errors.Is(err, remote.ErrStale) {
			return leaves, err
		}
		e.log.Debug("leaf scan went stale, restarting", zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("collect leaves under %s: %w", c, err)
}

func (e *Enumerator) CollectLeafIDs(ctx context.Context, c Container) ([]NodeID, error) {
	leaves, err := e.CollectLeaves(ctx, c)
	if err != nil {
		return nil, err
	}
	ids := make([]NodeID, 0, len(leaves))
	for _, l := range leaves {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (e *Enumerator) scan(ctx context.Context, c Container) ([]Leaf, error) {
	scope, err := e.element(ctx, c, false)
	if err != nil {
		return nil, err
	}
	els, err := e.b.FindAll(ctx, scope, remote.CSS(e.opts.Selectors.Leaf))
	if err != nil {
		return nil, err
	}
	seen := make(map[NodeID]struct{}, len(els))
	leaves := make([]Leaf, 0, len(els))
	skipped := 0
	for _, el := range els {
		id, err := e.b.Attribute(ctx, el, "id")
		if err != nil {
			return nil, err
		}
		if id == "" {
			skipped++
			continue
		}
		if _, dup := seen[NodeID(id)]; dup {
			e.log.Warn("duplicate leaf id", zap.String("id", id))
			continue
		}
		label, err := e.b.Text(ctx, el)
		if err != nil {
			return nil, err
		}
		seen[NodeID(id)] = struct{}{}
		leaves = append(leaves, Leaf{ID: NodeID(id), Label: label})
	}
	if skipped > 0 {
		e.log.Debug("skipped leaves without id", zap.Int("count", skipped))
	}
	return leaves, nil
}
