// Package report accumulates the per-leaf outcomes of one run.
package report

import (
	"fmt"
	"time"
)

const (
	StatusCaptured = "captured"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

type Item struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	Status      string `json:"status"`
	Title       string `json:"title,omitempty"`
	Source      string `json:"source,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

type Run struct {
	RunID      string    `json:"run_id"`
	Subject    string    `json:"subject"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	State      string    `json:"state"`
	Enumerated int       `json:"enumerated"`
	Captured   int       `json:"captured"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Items      []Item    `json:"items"`
}

func New(runID, subject string, started time.Time) *Run {
	return &Run{RunID: runID, Subject: subject, Started: started, Items: []Item{}}
}

// Add appends item and updates the matching counter.
func (r *Run) Add(item Item) {
	switch item.Status {
	case StatusCaptured:
		r.Captured++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Items = append(r.Items, item)
}

// Failures returns the failed items in the order they were added.
func (r *Run) Failures() []Item {
	out := []Item{}
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

func (r *Run) Summary() string {
	return fmt.Sprintf("Captured %d of %d pages (%d skipped, %d failed)", r.Captured, r.Enumerated, r.Skipped, r.Failed)
}
