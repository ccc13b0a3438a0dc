package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"helptree/internal/app"
	"helptree/internal/auth"
	"helptree/internal/config"
	"helptree/internal/remote/remotetest"
	"helptree/internal/report"
	"helptree/internal/tree"
)

const (
	loginURL   = "https://system.example.test/pages/customerlogin.jsp"
	landingURL = "https://1234.app.example.test/app/center/card.nl?sc=-29"
	helpURL    = "https://1234.app.example.test/app/help/helpcenter.nl"
	question   = "What was the name of your first pet?"
)

func helpCenter(question string, leaves ...*remotetest.Node) *remotetest.Widget {
	return remotetest.New(helpURL,
		remotetest.Folder("n_1", "A",
			remotetest.Folder("n_1_1", "B", leaves...),
		),
		remotetest.Folder("n_2", "Other", remotetest.Leaf("n_2_1", "elsewhere")),
	).WithLogin(remotetest.Login{
		URL:      loginURL,
		Landing:  landingURL,
		Email:    "me@example.test",
		Password: "s3cret",
		Question: question,
		Answer:   "Rex",
	})
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Subject = "A|B"
	cfg.HelpCenterURL = "/app/help/helpcenter.nl"
	cfg.Auth.LoginURL = loginURL
	cfg.Auth.Email = "me@example.test"
	cfg.Auth.Password = "s3cret"
	cfg.Auth.Challenges = []auth.ChallengeAnswer{{Question: question, Answer: "Rex"}}
	cfg.Timeouts = config.Timeouts{
		Login:      time.Second,
		Navigation: 500 * time.Millisecond,
		Resolve:    500 * time.Millisecond,
		Content:    50 * time.Millisecond,
	}
	dir := t.TempDir()
	cfg.Output.Path = filepath.Join(dir, "archive.html")
	cfg.Output.ReportPath = filepath.Join(dir, "report.json")
	return cfg
}

func deps(w *remotetest.Widget, progress *bytes.Buffer, logger *zap.Logger) app.Deps {
	return app.Deps{
		Browser:  w,
		Logger:   logger,
		Progress: progress,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
		RunID:    func() string { return "run-1" },
	}
}

func readArchive(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	return string(data)
}

func TestRunEndToEnd(t *testing.T) {
	leaf2 := remotetest.Leaf("n_1_1_2", "leaf2")
	leaf2.NoTrigger = true
	w := helpCenter(question,
		remotetest.Leaf("n_1_1_1", "leaf1"),
		leaf2,
		remotetest.Folder("n_1_1_3", "sub", remotetest.Leaf("n_1_1_3_1", "leaf3")),
	)
	cfg := testConfig(t)
	var progress bytes.Buffer

	res, err := app.RunWith(context.Background(), app.Options{Config: cfg}, deps(w, &progress, nil))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != app.StateFinalized {
		t.Fatalf("expected finalized, got %s", res.State)
	}
	wantLeaves := []tree.Leaf{
		{ID: "n_1_1_1", Label: "leaf1"},
		{ID: "n_1_1_2", Label: "leaf2"},
		{ID: "n_1_1_3_1", Label: "leaf3"},
	}
	if diff := cmp.Diff(wantLeaves, res.Leaves); diff != "" {
		t.Fatalf("leaves mismatch (-want +got):\n%s", diff)
	}
	if !w.Closed() {
		t.Fatalf("browser should be closed")
	}

	got := readArchive(t, cfg.Output.Path)
	if n := strings.Count(got, `<article class="scraped-page">`); n != 2 {
		t.Fatalf("expected 2 records, got %d:\n%s", n, got)
	}
	i1, i3 := strings.Index(got, "Body of leaf1"), strings.Index(got, "Body of leaf3")
	if i1 < 0 || i3 < 0 || i1 > i3 {
		t.Fatalf("expected leaf1 then leaf3 in archive:\n%s", got)
	}
	if strings.Contains(got, "Body of leaf2") || strings.Contains(got, "elsewhere") {
		t.Fatalf("unexpected content in archive:\n%s", got)
	}
	if !strings.Contains(got, `<h2 class="page-subtitle">A &gt; B</h2>`) {
		t.Fatalf("missing subject subtitle")
	}

	if res.Report.Captured != 2 || res.Report.Skipped != 1 || res.Report.Failed != 0 {
		t.Fatalf("unexpected report counts %+v", res.Report)
	}
	if _, err := os.Stat(cfg.Output.ReportPath); err != nil {
		t.Fatalf("report not written: %v", err)
	}
	out := progress.String()
	for _, want := range []string{
		"(1/3) Processing: leaf1",
		"(2/3) Processing: leaf2",
		"(3/3) Processing: leaf3",
		"Captured 2 of 3 pages (1 skipped, 0 failed)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in progress:\n%s", want, out)
		}
	}
}

func TestRunUnrecognizedChallengeWritesNothing(t *testing.T) {
	w := helpCenter("Where were you born?", remotetest.Leaf("n_1_1_1", "leaf1"))
	cfg := testConfig(t)
	var progress bytes.Buffer

	res, err := app.RunWith(context.Background(), app.Options{Config: cfg}, deps(w, &progress, nil))
	if !auth.IsKind(err, auth.UnrecognizedChallenge) {
		t.Fatalf("expected UnrecognizedChallenge, got %v", err)
	}
	if res.State != app.StateInit {
		t.Fatalf("run should stop before authenticated, got %s", res.State)
	}
	if _, err := os.Stat(cfg.Output.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("archive must not be created, stat err = %v", err)
	}
	if strings.Contains(progress.String(), "Processing") {
		t.Fatalf("no extraction expected:\n%s", progress.String())
	}
	if !w.Closed() {
		t.Fatalf("browser should be closed after a fatal error")
	}
}

func TestRunContentTimeoutRecordsError(t *testing.T) {
	stalled := remotetest.Leaf("n_1_1_2", "stalled")
	stalled.Stall = true
	w := helpCenter(question,
		remotetest.Leaf("n_1_1_1", "first"),
		stalled,
		remotetest.Leaf("n_1_1_3", "third"),
	)
	cfg := testConfig(t)
	core, logs := observer.New(zapcore.DebugLevel)
	var progress bytes.Buffer

	res, err := app.RunWith(context.Background(), app.Options{Config: cfg}, deps(w, &progress, zap.New(core)))
	if err != nil {
		t.Fatalf("a per-page failure must not fail the run: %v", err)
	}
	got := readArchive(t, cfg.Output.Path)
	if n := strings.Count(got, `<article class="scraped-page`); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
	if n := strings.Count(got, `scraped-page error`); n != 1 {
		t.Fatalf("expected exactly one error record, got %d", n)
	}
	first := strings.Index(got, "Body of first")
	failed := strings.Index(got, "Failed to scrape: stalled")
	third := strings.Index(got, "Body of third")
	if !(first >= 0 && first < failed && failed < third) {
		t.Fatalf("records out of enumeration order:\n%s", got)
	}

	if failures := res.Report.Failures(); len(failures) != 1 || failures[0].ID != "n_1_1_2" {
		t.Fatalf("unexpected failures %+v", failures)
	}
	entries := logs.FilterMessage("page failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log, got %d", len(entries))
	}
	if id := entries[0].ContextMap()["id"]; id != "n_1_1_2" {
		t.Fatalf("failure log should carry the leaf id, got %v", id)
	}
}

func TestRunDryRunStopsAfterEnumeration(t *testing.T) {
	w := helpCenter(question, remotetest.Leaf("n_1_1_1", "leaf1"), remotetest.Leaf("n_1_1_2", "leaf2"))
	cfg := testConfig(t)
	cfg.Output.ManifestPath = filepath.Join(t.TempDir(), "leaves.json")
	var progress bytes.Buffer

	res, err := app.RunWith(context.Background(), app.Options{Config: cfg, DryRun: true}, deps(w, &progress, nil))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != app.StateEnumerated {
		t.Fatalf("expected enumerated, got %s", res.State)
	}
	if _, err := os.Stat(cfg.Output.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run must not write an archive")
	}
	if _, err := os.Stat(cfg.Output.ManifestPath); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if !strings.Contains(progress.String(), "n_1_1_2") {
		t.Fatalf("leaves not printed:\n%s", progress.String())
	}
}

func TestRunMaxPagesAndMarkdown(t *testing.T) {
	w := helpCenter(question,
		remotetest.Leaf("n_1_1_1", "leaf1"),
		remotetest.Leaf("n_1_1_2", "leaf2"),
		remotetest.Leaf("n_1_1_3", "leaf3"),
	)
	cfg := testConfig(t)
	cfg.MaxPages = 2
	cfg.Output.Format = "markdown"
	cfg.Output.Path = filepath.Join(t.TempDir(), "archive.md")
	var progress bytes.Buffer

	res, err := app.RunWith(context.Background(), app.Options{Config: cfg}, deps(w, &progress, nil))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Report.Enumerated != 2 || res.Report.Captured != 2 {
		t.Fatalf("expected 2 pages, got %+v", res.Report)
	}
	got := readArchive(t, cfg.Output.Path)
	if !strings.Contains(got, "## leaf1") || !strings.Contains(got, "## leaf2") || strings.Contains(got, "leaf3") {
		t.Fatalf("unexpected markdown archive:\n%s", got)
	}
	if res.Report.Items[0].Status != report.StatusCaptured {
		t.Fatalf("unexpected item %+v", res.Report.Items[0])
	}
}

func TestRunMissingSubtreeIsFatal(t *testing.T) {
	w := helpCenter(question, remotetest.Leaf("n_1_1_1", "leaf1"))
	cfg := testConfig(t)
	cfg.Subject = "A|Missing"
	cfg.Timeouts.Resolve = 50 * time.Millisecond
	var progress bytes.Buffer

	res, err := app.RunWith(context.Background(), app.Options{Config: cfg}, deps(w, &progress, nil))
	if !errors.Is(err, tree.ErrLabelNotFound) {
		t.Fatalf("expected ErrLabelNotFound, got %v", err)
	}
	if res.State != app.StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", res.State)
	}
	if _, err := os.Stat(cfg.Output.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("archive must not be created")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Subject = ""
	if _, err := app.RunWith(context.Background(), app.Options{Config: cfg}, app.Deps{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRunInvalidConfigClosesInjectedBrowser(t *testing.T) {
	w := helpCenter(question, remotetest.Leaf("n_1_1_1", "leaf1"))
	cfg := testConfig(t)
	cfg.Subject = ""
	var progress bytes.Buffer
	if _, err := app.RunWith(context.Background(), app.Options{Config: cfg}, deps(w, &progress, zap.NewNop())); err == nil {
		t.Fatalf("expected validation error")
	}
	if !w.Closed() {
		t.Fatalf("injected browser should be closed when options are rejected")
	}
}
