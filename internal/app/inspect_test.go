package app_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"helptree/internal/app"
	"helptree/internal/remote/remotetest"
)

func TestInspectCountsSelectors(t *testing.T) {
	w := helpCenter(question, remotetest.Leaf("n_1_1_1", "leaf1"))
	var progress bytes.Buffer
	cfg := testConfig(t)
	cfg.Output.Path = ""

	in, err := app.Inspect(context.Background(), app.Options{Config: cfg}, "span[isfolder='1']", deps(w, &progress, zap.NewNop()))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if in.URL != helpURL {
		t.Fatalf("unexpected url %q", in.URL)
	}
	want := map[string]int{
		"folder":            2,
		"leaf":              0,
		"toggle":            2,
		"collapsed toggle":  2,
		"leaf with trigger": 0,
		"content region":    0,
	}
	for _, c := range in.Counts {
		n, ok := want[c.Name]
		if !ok {
			continue
		}
		if c.Matches != n {
			t.Fatalf("%s (%s): expected %d, got %d", c.Name, c.Selector, n, c.Matches)
		}
		delete(want, c.Name)
	}
	if len(want) != 0 {
		t.Fatalf("missing counts: %v", want)
	}
	if len(in.Matches) != 2 || in.Matches[0].Snippet != "A" || in.Matches[1].Snippet != "Other" {
		t.Fatalf("unexpected matches: %+v", in.Matches)
	}
	if !w.Closed() {
		t.Fatalf("browser should be closed")
	}
	if w.ToggleClicks() != 0 {
		t.Fatalf("inspect must not expand the tree")
	}

	var out bytes.Buffer
	app.PrintInspection(&out, in)
	for _, s := range []string{"Inspected: " + helpURL, "- folder (span[isfolder='1']): 2", "--- Match #2 ---", "Snippet: Other"} {
		if !strings.Contains(out.String(), s) {
			t.Fatalf("expected %q in:\n%s", s, out.String())
		}
	}
}
