package remote

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
)

type LaunchOptions struct {
	Driver    string
	Headless  bool
	UserAgent string
	ProxyURL  string
	// Timeout bounds single driver actions such as navigation.
	Timeout time.Duration
}

// Open starts a browser with the requested driver and returns its only page.
func Open(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverPlaywright:
		return openPlaywright(ctx, opts, playwrightProvider{})
	case DriverRod:
		return openRod(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q (use %s or %s)", opts.Driver, DriverPlaywright, DriverRod)
	}
}

// filterMatches narrows candidates to the query's text and visibility
// constraints. It is shared by the driver backends.
func filterMatches[E any](ctx context.Context, candidates []E, q Query,
	text func(E) (string, error), visible func(E) (bool, error)) ([]Element, error) {
	out := make([]Element, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.Text != "" {
			t, err := text(c)
			if err != nil {
				return nil, err
			}
			if NormalizeText(t) != q.Text {
				continue
			}
		}
		if q.Visible {
			ok, err := visible(c)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}
