package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"helptree/internal/extract"
	"helptree/internal/remote/remotetest"
	"helptree/internal/tree"
)

const helpURL = "https://help.example.test/app/help/helpcenter.nl"

func fixture() *remotetest.Widget {
	leaf1 := remotetest.Leaf("n_1_1_1", "leaf1")
	leaf1.Content = `<p>Use <code>record.load</code> to read a record.</p><div class="nshelp_important">Important: governance</div>`
	leaf2 := remotetest.Leaf("n_1_1_2", "leaf2")
	leaf2.NoTrigger = true
	stalled := remotetest.Leaf("n_1_1_3", "stalled")
	stalled.Stall = true
	bare := remotetest.Leaf("n_1_1_4", "bare")
	bare.Bare = true
	bare.Title = "-"
	return remotetest.New(helpURL,
		remotetest.Folder("n_1", "A",
			remotetest.Folder("n_1_1", "B", leaf1, leaf2, stalled, bare),
		),
	)
}

func newExtractor(w *remotetest.Widget) *extract.Extractor {
	return extract.New(w, extract.Options{
		RootURL:        helpURL,
		Tree:           tree.Options{ResolveTimeout: 200 * time.Millisecond},
		NavTimeout:     200 * time.Millisecond,
		ContentTimeout: 50 * time.Millisecond,
	})
}

func TestVisitCapturesCleanedPage(t *testing.T) {
	w := fixture()
	out := newExtractor(w).Visit(context.Background(), tree.Leaf{ID: "n_1_1_1", Label: "leaf1"})
	if out.Status != extract.Captured {
		t.Fatalf("expected captured, got %s: %v", out.Status, out.Err)
	}
	p := out.Page
	if p.Title != "leaf1" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Breadcrumb != "A > B" {
		t.Fatalf("unexpected breadcrumb %q", p.Breadcrumb)
	}
	if p.Source != helpURL+"#n_1_1_1" {
		t.Fatalf("unexpected source %q", p.Source)
	}
	if !strings.Contains(p.Content, "Use <code>record.load</code> to read a record.") {
		t.Fatalf("paragraph not preserved: %s", p.Content)
	}
	for _, gone := range []string{"General Notices", "Was this helpful", "Related Topics", "Previous | Next", "governance"} {
		if strings.Contains(p.Content, gone) {
			t.Fatalf("expected %q to be removed: %s", gone, p.Content)
		}
	}
	if w.Navigations()[0] != helpURL {
		t.Fatalf("expected a fresh navigation to the help center")
	}
}

func TestVisitSkipsLeafWithoutTrigger(t *testing.T) {
	w := fixture()
	out := newExtractor(w).Visit(context.Background(), tree.Leaf{ID: "n_1_1_2", Label: "leaf2"})
	if out.Status != extract.Skipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
	if !errors.Is(out.Err, extract.ErrNotActionable) {
		t.Fatalf("expected ErrNotActionable, got %v", out.Err)
	}
	for _, c := range w.Clicks() {
		if strings.HasPrefix(c, "open:") {
			t.Fatalf("leaf without trigger must not be clicked: %v", w.Clicks())
		}
	}
}

func TestVisitContentRegionTimeout(t *testing.T) {
	w := fixture()
	out := newExtractor(w).Visit(context.Background(), tree.Leaf{ID: "n_1_1_3", Label: "stalled"})
	if out.Status != extract.Failed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	var xerr *extract.ExtractError
	if !errors.As(out.Err, &xerr) || xerr.Kind != extract.ContentRegionTimeout {
		t.Fatalf("expected ContentRegionTimeout, got %v", out.Err)
	}
	if xerr.ID != "n_1_1_3" {
		t.Fatalf("error should carry the leaf id, got %s", xerr.ID)
	}
}

func TestVisitMissingContainerWritesPlaceholder(t *testing.T) {
	w := fixture()
	out := newExtractor(w).Visit(context.Background(), tree.Leaf{ID: "n_1_1_4", Label: "bare"})
	if out.Status != extract.Captured {
		t.Fatalf("expected captured, got %s: %v", out.Status, out.Err)
	}
	if !out.Page.Placeholder {
		t.Fatalf("expected placeholder content, got %s", out.Page.Content)
	}
	if out.Page.Title != "bare" {
		t.Fatalf("expected window title fallback, got %q", out.Page.Title)
	}
}

func TestVisitUnknownLeafFails(t *testing.T) {
	w := fixture()
	out := newExtractor(w).Visit(context.Background(), tree.Leaf{ID: "n_1_1_9"})
	var xerr *extract.ExtractError
	if out.Status != extract.Failed || !errors.As(out.Err, &xerr) || xerr.Kind != extract.Resolution {
		t.Fatalf("expected resolution failure, got %s: %v", out.Status, out.Err)
	}
}

func TestVisitSequenceReexpandsPerLeaf(t *testing.T) {
	w := fixture()
	x := newExtractor(w)
	ctx := context.Background()
	for _, id := range []tree.NodeID{"n_1_1_1", "n_1_1_4"} {
		if out := x.Visit(ctx, tree.Leaf{ID: id}); out.Status != extract.Captured {
			t.Fatalf("leaf %s: %s: %v", id, out.Status, out.Err)
		}
	}
	if got := w.ToggleClicks(); got != 4 {
		t.Fatalf("expected both ancestors expanded for each leaf, got %d toggles", got)
	}
}

func TestCleanerRemovesChromeAndScripts(t *testing.T) {
	c := extract.NewCleaner(extract.Selectors{})
	page, err := c.Clean(`<html><head><title>Ignored - Help</title></head><body>
	<div id="ns_navigation"><a>SuiteScript</a> <a>Modules</a></div>
	<h1 class="nshelp_title">N/record Module</h1>
	<div class="nshelp_page">
	  <div class="nshelp_navheader">nav</div>
	  <p>Keep this text exactly.</p>
	  <p><a href="/app/help/helpcenter.nl?fid=section_2">See also</a></p>
	  <pre class="language-javascript"><code>var r = 1;</code></pre>
	  <script>alert(1)</script>
	  <div id="nshelp_footer">footer</div>
	</div></body></html>`, "https://1234.app.example.test/app/help/helpcenter.nl#n_1")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if page.Title != "N/record Module" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if page.Breadcrumb != "SuiteScript > Modules" {
		t.Fatalf("unexpected breadcrumb %q", page.Breadcrumb)
	}
	if !strings.Contains(page.Content, "<p>Keep this text exactly.</p>") {
		t.Fatalf("paragraph changed: %s", page.Content)
	}
	if !strings.Contains(page.Content, `class="language-javascript"`) {
		t.Fatalf("code classes should survive: %s", page.Content)
	}
	if !strings.Contains(page.Content, `href="https://1234.app.example.test/app/help/helpcenter.nl?fid=section_2"`) {
		t.Fatalf("relative link not resolved: %s", page.Content)
	}
	for _, gone := range []string{"alert(1)", "footer", ">nav<"} {
		if strings.Contains(page.Content, gone) {
			t.Fatalf("expected %q removed: %s", gone, page.Content)
		}
	}
}
