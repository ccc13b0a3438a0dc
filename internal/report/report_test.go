package report_test

import (
	"testing"
	"time"

	"helptree/internal/report"
)

func TestAddCountsByStatus(t *testing.T) {
	run := report.New("run-1", "A > B", time.Unix(0, 0))
	run.Enumerated = 4
	run.Add(report.Item{ID: "n_1", Status: report.StatusCaptured})
	run.Add(report.Item{ID: "n_2", Status: report.StatusSkipped})
	run.Add(report.Item{ID: "n_3", Status: report.StatusFailed, Error: "timeout"})
	run.Add(report.Item{ID: "n_4", Status: report.StatusCaptured})

	if run.Captured != 2 || run.Skipped != 1 || run.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", run)
	}
	if len(run.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(run.Items))
	}
	if got := run.Summary(); got != "Captured 2 of 4 pages (1 skipped, 1 failed)" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestFailures(t *testing.T) {
	run := report.New("run-1", "A", time.Unix(0, 0))
	if got := run.Failures(); len(got) != 0 {
		t.Fatalf("expected no failures, got %v", got)
	}
	run.Add(report.Item{ID: "n_1", Status: report.StatusFailed})
	run.Add(report.Item{ID: "n_2", Status: report.StatusCaptured})
	run.Add(report.Item{ID: "n_3", Status: report.StatusFailed})
	got := run.Failures()
	if len(got) != 2 || got[0].ID != "n_1" || got[1].ID != "n_3" {
		t.Fatalf("unexpected failures %v", got)
	}
}
