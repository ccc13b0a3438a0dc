// Package app drives one archive run: sign in, enumerate the configured
// subtree, then visit every leaf and append it to the archive.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"helptree/internal/auth"
	"helptree/internal/extract"
	"helptree/internal/metrics"
	"helptree/internal/output"
	"helptree/internal/remote"
	"helptree/internal/report"
	"helptree/internal/tree"
)

const archiveTitle = "Scraped NetSuite Documentation"

type State int

const (
	StateInit State = iota
	StateAuthenticated
	StateEnumerated
	StateExtracting
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthenticated:
		return "authenticated"
	case StateEnumerated:
		return "enumerated"
	case StateExtracting:
		return "extracting"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Deps are the collaborators of a run. Zero values are replaced with the
// production ones.
type Deps struct {
	Browser  remote.Browser
	Logger   *zap.Logger
	Progress io.Writer
	Metrics  *metrics.Recorder
	Now      func() time.Time
	RunID    func() string
}

type Result struct {
	RunID string
	State State
	// Index is the position of the last leaf handed to the extractor.
	Index      int
	Leaves     []tree.Leaf
	Report     *report.Run
	OutputPath string
}

func Run(ctx context.Context, opts Options) (Result, error) {
	return RunWith(ctx, opts, Deps{})
}

// RunWith executes a run. The browser is closed before it returns, whatever
// the outcome.
func RunWith(ctx context.Context, opts Options, deps Deps) (Result, error) {
	r, release, err := prepare(ctx, opts, deps)
	if err != nil {
		return Result{}, err
	}
	defer release()
	err = r.run(ctx)
	r.result.Report.State = r.result.State.String()
	return r.result, err
}

// prepare validates opts, fills deps and opens the browser. The returned
// func closes it. An injected browser is closed on failure as well.
func prepare(ctx context.Context, opts Options, deps Deps) (*runner, func(), error) {
	s, err := normalizeOptions(opts)
	if err != nil {
		if deps.Browser != nil {
			_ = deps.Browser.Close()
		}
		return nil, nil, err
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Progress == nil {
		deps.Progress = os.Stdout
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RunID == nil {
		deps.RunID = uuid.NewString
	}
	s.tree.Logger = deps.Logger
	s.tree = s.tree.WithDefaults()

	runID := deps.RunID()
	r := &runner{
		s:       s,
		opts:    opts,
		deps:    deps,
		log:     deps.Logger.With(zap.String("run", runID)),
		out:     deps.Progress,
		metrics: deps.Metrics,
		result: Result{
			RunID:  runID,
			Report: report.New(runID, s.path.String(), deps.Now()),
		},
	}

	b := deps.Browser
	if b == nil {
		b, err = remote.Open(ctx, launchOptions(s.cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("start browser: %w", err)
		}
	}
	r.b = b
	release := func() {
		if cerr := b.Close(); cerr != nil {
			r.log.Warn("close browser", zap.Error(cerr))
		}
	}
	return r, release, nil
}

type runner struct {
	s       settings
	opts    Options
	deps    Deps
	b       remote.Browser
	log     *zap.Logger
	out     io.Writer
	metrics *metrics.Recorder
	result  Result
}

func (r *runner) advance(st State) {
	r.result.State = st
	r.log.Debug("state", zap.String("state", st.String()))
}

func (r *runner) run(ctx context.Context) error {
	session, err := r.authenticate(ctx)
	if err != nil {
		return err
	}
	r.advance(StateAuthenticated)

	rootURL, err := session.Resolve(r.s.cfg.HelpCenterURL)
	if err != nil {
		return err
	}
	leaves, err := r.enumerate(ctx, rootURL)
	if err != nil {
		return err
	}
	r.result.Leaves = leaves
	r.result.Report.Enumerated = len(leaves)
	r.advance(StateEnumerated)

	if p := r.s.cfg.Output.ManifestPath; p != "" {
		if err := output.WriteManifest(p, leaves); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	if r.opts.DryRun {
		fmt.Fprintf(r.out, "Found %d leaf nodes under %s\n", len(leaves), r.s.path)
		PrintLeaves(r.out, leaves)
		return nil
	}

	if limit := r.s.cfg.MaxPages; limit > 0 && len(leaves) > limit {
		r.log.Info("limiting pages", zap.Int("max_pages", limit), zap.Int("enumerated", len(leaves)))
		leaves = leaves[:limit]
		r.result.Report.Enumerated = limit
	}
	if err := r.extractAll(ctx, rootURL, leaves); err != nil {
		return err
	}
	r.advance(StateFinalized)
	return r.finish(ctx)
}

func (r *runner) authenticate(ctx context.Context) (auth.Session, error) {
	a := r.s.cfg.Auth
	if !a.Enabled() {
		r.log.Info("no login url configured, skipping sign-in")
		return auth.Session{}, nil
	}
	authn := auth.New(r.b, a.Selectors, r.s.cfg.Timeouts.Login, r.log)
	session, err := authn.Authenticate(ctx, a.Credentials())
	if err != nil {
		r.log.Error("sign-in failed", zap.Error(err))
		return auth.Session{}, err
	}
	return session, nil
}

// enumerate resolves the configured subtree, expands it and lists its leaves.
func (r *runner) enumerate(ctx context.Context, rootURL string) ([]tree.Leaf, error) {
	if err := r.openHelpCenter(ctx, rootURL); err != nil {
		return nil, err
	}

	resolver := tree.NewResolver(r.b, r.s.tree)
	target, err := resolver.Resolve(ctx, r.s.path, tree.Container{})
	if err != nil {
		return nil, err
	}
	stats := resolver.Stats()
	r.log.Info("subtree located", zap.String("id", string(target.ID)),
		zap.Int("lookups", stats.Lookups), zap.Int("expansions", stats.Expansions))

	clicks, err := tree.NewExpander(r.b, r.s.tree).ExpandFully(ctx, target)
	r.metrics.AddExpandClicks(stats.Expansions + clicks)
	if err != nil {
		return nil, err
	}
	leaves, err := tree.NewEnumerator(r.b, r.s.tree).CollectLeaves(ctx, target)
	if err != nil {
		return nil, err
	}
	r.metrics.SetLeaves(len(leaves))
	r.log.Info("leaves enumerated", zap.Int("count", len(leaves)), zap.Int("expand_clicks", clicks))
	return leaves, nil
}

func (r *runner) openHelpCenter(ctx context.Context, rootURL string) error {
	if err := r.b.Navigate(ctx, rootURL); err != nil {
		return fmt.Errorf("open help center: %w", err)
	}
	ready := r.s.tree.Selectors.Ready()
	if _, err := remote.WaitUntil(ctx, r.s.cfg.Timeouts.Navigation, remote.Present(r.b, nil, ready)); err != nil {
		return fmt.Errorf("help center tree did not render: %w", err)
	}
	return nil
}

func (r *runner) extractAll(ctx context.Context, rootURL string, leaves []tree.Leaf) error {
	cfg := r.s.cfg
	archive, err := output.Open(cfg.Output.Path, r.s.format)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()
	r.result.OutputPath = archive.Path()

	err = archive.WriteHeader(output.Header{
		Title:     archiveTitle,
		Subject:   r.s.path.String(),
		Generated: r.deps.Now(),
		RunID:     r.result.RunID,
	})
	if err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}

	x := extract.New(r.b, extract.Options{
		RootURL:        rootURL,
		Tree:           r.s.tree,
		Content:        r.s.content,
		NavTimeout:     cfg.Timeouts.Navigation,
		ContentTimeout: cfg.Timeouts.Content,
		ScrollPause:    cfg.Timeouts.Scroll,
		Logger:         r.log,
	})
	r.advance(StateExtracting)
	for i, leaf := range leaves {
		if i > 0 && r.s.pace > 0 {
			if err := remote.Sleep(ctx, r.s.pace); err != nil {
				return err
			}
		}
		r.result.Index = i
		printProgress(r.out, i+1, len(leaves), leaf)
		out := x.Visit(ctx, leaf)
		if err := ctx.Err(); err != nil {
			return err
		}
		printOutcome(r.out, out)
		if err := r.record(archive, out); err != nil {
			return err
		}
	}

	if err := archive.WriteFooter(); err != nil {
		return fmt.Errorf("write archive footer: %w", err)
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// record turns one outcome into a report item, a metric sample and, unless
// the leaf was skipped, an archive record.
func (r *runner) record(archive *output.Archive, out extract.Outcome) error {
	item := report.Item{
		ID:         string(out.Leaf.ID),
		Label:      out.Leaf.Label,
		Status:     out.Status.String(),
		DurationMS: out.Duration.Milliseconds(),
	}
	r.metrics.ObservePage(item.Status, out.Duration)
	log := r.log.With(zap.String("id", item.ID))

	var rec *output.Record
	switch out.Status {
	case extract.Captured:
		item.Title = out.Page.Title
		item.Source = out.Page.Source
		item.Placeholder = out.Page.Placeholder
		rec = &output.Record{
			Title:      out.Page.Title,
			Source:     out.Page.Source,
			Breadcrumb: out.Page.Breadcrumb,
			Content:    out.Page.Content,
		}
		log.Debug("page captured", zap.String("title", out.Page.Title))
	case extract.Skipped:
		log.Info("leaf skipped", zap.String("label", out.Leaf.Label), zap.Error(out.Err))
	default:
		item.Error = out.Err.Error()
		rec = &output.Record{
			Title:  "Failed to scrape: " + displayLabel(out.Leaf),
			Failed: true,
			Err:    out.Err.Error(),
		}
		log.Warn("page failed", zap.Error(out.Err))
	}
	r.result.Report.Add(item)
	if rec == nil {
		return nil
	}
	if err := archive.WriteRecord(*rec); err != nil {
		return fmt.Errorf("write record %s: %w", item.ID, err)
	}
	return nil
}

func (r *runner) finish(ctx context.Context) error {
	cfg := r.s.cfg
	run := r.result.Report
	run.Finished = r.deps.Now()
	if p := cfg.Output.ReportPath; p != "" {
		if err := output.WriteReport(p, run); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if p := cfg.Output.MetricsPath; p != "" {
		if err := r.metrics.WriteTextfile(p); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	printSummary(r.out, run, r.result.OutputPath)
	r.log.Info("run finished",
		zap.Int("captured", run.Captured), zap.Int("skipped", run.Skipped), zap.Int("failed", run.Failed))

	if len(cfg.PostCommands) == 0 {
		return nil
	}
	return runPostCommands(ctx, cfg.PostCommands, hookEnv{
		OutputPath: r.result.OutputPath,
		ReportPath: cfg.Output.ReportPath,
		Subject:    r.s.path.String(),
	}, true)
}
