package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"helptree/internal/config"
	"helptree/internal/extract"
	"helptree/internal/output"
	"helptree/internal/remote"
	"helptree/internal/tree"
)

// settings is the validated, typed view of a Config used by one run.
type settings struct {
	cfg     config.Config
	path    tree.PathSpec
	format  output.Format
	tree    tree.Options
	content extract.Selectors
	pace    time.Duration
}

func normalizeOptions(opts Options) (settings, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid config: %w", err)
	}
	path, err := cfg.PathSpec()
	if err != nil {
		return settings{}, err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return settings{}, err
	}
	if !opts.DryRun && strings.TrimSpace(cfg.Output.Path) == "" {
		return settings{}, errors.New("output.path is required")
	}
	s := settings{
		cfg:     cfg,
		path:    path,
		format:  format,
		content: cfg.Content,
		tree: tree.Options{
			Selectors:      cfg.Tree.Selectors,
			ResolveTimeout: cfg.Timeouts.Resolve,
			Settle:         cfg.Timeouts.Settle,
			MaxPasses:      cfg.Tree.MaxExpandPasses,
		},
	}
	if cfg.RateLimitPerSecond > 0 {
		s.pace = time.Duration(float64(time.Second) / cfg.RateLimitPerSecond)
	}
	return s, nil
}

func launchOptions(cfg config.Config) remote.LaunchOptions {
	return remote.LaunchOptions{
		Driver:    cfg.Driver,
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.ProxyURL,
		Timeout:   cfg.Timeouts.Navigation,
	}
}

type Options struct {
	Config config.Config
	// DryRun stops after enumeration and prints the leaves.
	DryRun bool
}
