package remote

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Condition is polled by WaitUntil. It reports the element it found (if any)
// and whether the wait is over. Retryable errors keep the wait going.
type Condition func(ctx context.Context) (Element, bool, error)

const (
	maxPollInterval = 100 * time.Millisecond
	minPollInterval = 5 * time.Millisecond
)

func pollInterval(timeout time.Duration) time.Duration {
	step := timeout / 20
	if step > maxPollInterval {
		return maxPollInterval
	}
	if step < minPollInterval {
		return minPollInterval
	}
	return step
}

func WaitUntil(ctx context.Context, timeout time.Duration, cond Condition) (Element, error) {
	_, el, err := WaitAny(ctx, timeout, cond)
	return el, err
}

// WaitAny evaluates every condition on each tick and returns the index of
// the first one satisfied.
func WaitAny(ctx context.Context, timeout time.Duration, conds ...Condition) (int, Element, error) {
	if len(conds) == 0 {
		return -1, nil, fmt.Errorf("wait: no conditions")
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval(timeout))
	defer ticker.Stop()

	var lastErr error
	for {
		for i, cond := range conds {
			el, ok, err := cond(ctx)
			if err != nil && !Retryable(err) {
				return -1, nil, err
			}
			if err != nil {
				lastErr = err
				continue
			}
			if ok {
				return i, el, nil
			}
		}
		if !time.Now().Before(deadline) {
			if lastErr != nil {
				return -1, nil, fmt.Errorf("%w after %s (last: %v)", ErrTimeout, timeout, lastErr)
			}
			return -1, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		select {
		case <-ctx.Done():
			return -1, nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Present is satisfied once q matches inside scope. The scope function is
// re-evaluated on every poll so no handle outlives a tick.
func Present(b Browser, scope func(context.Context) (Element, error), q Query) Condition {
	return func(ctx context.Context) (Element, bool, error) {
		var root Element
		if scope != nil {
			s, err := scope(ctx)
			if err != nil {
				return nil, false, err
			}
			root = s
		}
		el, err := b.FindOne(ctx, root, q)
		if err != nil {
			return nil, false, err
		}
		return el, true, nil
	}
}

func LocationContains(b Browser, fragment string) Condition {
	return func(ctx context.Context) (Element, bool, error) {
		loc, err := b.CurrentLocation(ctx)
		if err != nil {
			return nil, false, err
		}
		return nil, strings.Contains(loc, fragment), nil
	}
}

// Sleep pauses for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
