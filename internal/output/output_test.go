package output_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"helptree/internal/output"
	"helptree/internal/report"
	"helptree/internal/tree"
)

var generated = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func writeArchive(t *testing.T, format output.Format, records ...output.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", "archive")
	a, err := output.Open(path, format)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := a.WriteHeader(output.Header{Title: "Help Archive", Subject: "A > B", Generated: generated, RunID: "run-1"}); err != nil {
		t.Fatalf("WriteHeader error: %v", err)
	}
	for _, r := range records {
		if err := a.WriteRecord(r); err != nil {
			t.Fatalf("WriteRecord error: %v", err)
		}
	}
	if err := a.WriteFooter(); err != nil {
		t.Fatalf("WriteFooter error: %v", err)
	}
	if a.Records() != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), a.Records())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	return string(data)
}

func TestHTMLArchive(t *testing.T) {
	got := writeArchive(t, output.FormatHTML,
		output.Record{Title: "leaf1", Source: "https://h/#n_1", Breadcrumb: "A > B", Content: "<div class=\"nshelp_page\"><p>one</p></div>"},
		output.Record{Title: "Failed to scrape: leaf3", Failed: true, Err: "content region timeout <x>"},
	)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Help Archive</title>",
		`<h2 class="page-subtitle">A &gt; B</h2>`,
		"Generated on: 2026-03-01 09:30:00",
		"<code>run-1</code>",
		`<article class="scraped-page">`,
		`<a href="https://h/#n_1" target="_blank">`,
		"<p><strong>Path:</strong> <code>A &gt; B</code></p>",
		"<p>one</p>",
		`<article class="scraped-page error"><h1>Failed to scrape: leaf3</h1><p>Error: content region timeout &lt;x&gt;</p></article>`,
		`<footer class="archive-footer"><p>End of archive: 2 pages</p></footer>`,
		"</html>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "leaf1") > strings.Index(got, "leaf3") {
		t.Fatalf("records out of order")
	}
}

func TestMarkdownArchive(t *testing.T) {
	got := writeArchive(t, output.FormatMarkdown,
		output.Record{Title: "leaf1", Source: "https://h/#n_1", Breadcrumb: "A > B", Content: "<p>Use <code>record.load</code>.</p>"},
		output.Record{Title: "Failed to scrape: leaf3", Failed: true, Err: "timeout"},
	)
	for _, want := range []string{
		"# Help Archive",
		"**Subject:** A > B",
		"## leaf1",
		"**Source:** <https://h/#n_1>",
		"**Path:** `A > B`",
		"Use `record.load`.",
		"## Failed to scrape: leaf3",
		"> [!ERROR]\n> timeout",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "_End of archive: 2 pages_\n") {
		t.Fatalf("expected the archive to end with the footer line, got:\n%s", got)
	}
}

func TestWriteAfterCloseFails(t *testing.T) {
	a, err := output.Open(filepath.Join(t.TempDir(), "a.html"), output.FormatHTML)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	_ = a.Close()
	if err := a.WriteRecord(output.Record{Title: "x"}); err != output.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]output.Format{"": output.FormatHTML, "HTML": output.FormatHTML, "md": output.FormatMarkdown, "markdown": output.FormatMarkdown} {
		got, err := output.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := output.ParseFormat("pdf"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := output.Open(filepath.Join(t.TempDir(), "x"), output.Format("pdf")); err == nil {
		t.Fatalf("expected Open to reject unknown format")
	}
}

func TestWriteReportAndManifest(t *testing.T) {
	dir := t.TempDir()
	run := report.New("run-1", "A > B", generated)
	run.Add(report.Item{ID: "n_1", Status: report.StatusCaptured})
	if err := output.WriteReport(filepath.Join(dir, "report.json"), run); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	var decoded report.Run
	data, _ := os.ReadFile(filepath.Join(dir, "report.json"))
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Captured != 1 || decoded.Items[0].ID != "n_1" {
		t.Fatalf("unexpected report %+v", decoded)
	}

	leaves := []tree.Leaf{{ID: "n_1_1", Label: "leaf1"}, {ID: "n_1_2", Label: "leaf2"}}
	if err := output.WriteManifest(filepath.Join(dir, "nested", "leaves.json"), leaves); err != nil {
		t.Fatalf("WriteManifest error: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "nested", "leaves.json"))
	if !strings.Contains(string(data), `"id": "n_1_1"`) || !strings.Contains(string(data), `"label": "leaf2"`) {
		t.Fatalf("unexpected manifest %s", data)
	}
}
