package remotetest

import (
	"context"
	"errors"
	"testing"

	"helptree/internal/remote"
)

const treeURL = "https://help.example.test/app/help/helpcenter.nl"

func TestToggleInvalidatesHandles(t *testing.T) {
	ctx := context.Background()
	w := New(treeURL, Folder("n_1", "A", Leaf("n_1_1", "Leaf")))
	if err := w.Navigate(ctx, treeURL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	toggle, err := w.FindOne(ctx, nil, remote.ByID("n_1_ti"))
	if err != nil {
		t.Fatalf("find toggle: %v", err)
	}
	if err := w.Click(ctx, toggle); err != nil {
		t.Fatalf("click: %v", err)
	}
	if !w.IsExpanded("n_1") {
		t.Fatalf("expected folder to be expanded")
	}
	if _, err := w.Attribute(ctx, toggle, "src"); !errors.Is(err, remote.ErrStale) {
		t.Fatalf("expected stale handle, got %v", err)
	}
	if _, err := w.FindOne(ctx, nil, remote.ByID("n_1_c")); err != nil {
		t.Fatalf("expected child container: %v", err)
	}
}

func TestNavigateCollapsesTree(t *testing.T) {
	ctx := context.Background()
	w := New(treeURL, Folder("n_1", "A", Leaf("n_1_1", "Leaf")))
	_ = w.Navigate(ctx, treeURL)
	toggle, _ := w.FindOne(ctx, nil, remote.ByID("n_1_ti"))
	_ = w.Click(ctx, toggle)
	_ = w.Navigate(ctx, treeURL)
	if w.IsExpanded("n_1") {
		t.Fatalf("expected navigation to reset the tree")
	}
	if _, err := w.FindOne(ctx, nil, remote.ByID("n_1_1")); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected leaf to be unrendered, got %v", err)
	}
}

func TestLeafOpensContent(t *testing.T) {
	ctx := context.Background()
	root := Folder("n_1", "A", Leaf("n_1_1", "Leaf"))
	root.Expanded = true
	w := New(treeURL, root)
	_ = w.Navigate(ctx, treeURL)
	leaf, err := w.FindOne(ctx, nil, remote.ByID("n_1_1"))
	if err != nil {
		t.Fatalf("find leaf: %v", err)
	}
	if err := w.Click(ctx, leaf); err != nil {
		t.Fatalf("click: %v", err)
	}
	title, err := w.FindOne(ctx, nil, remote.CSS("#helpcenter_content h1.nshelp_title").WithText("Leaf"))
	if err != nil {
		t.Fatalf("expected rendered title: %v", err)
	}
	if _, err := w.Text(ctx, title); err != nil {
		t.Fatalf("text: %v", err)
	}
	loc, _ := w.CurrentLocation(ctx)
	if loc != treeURL+"#n_1_1" {
		t.Fatalf("unexpected location %s", loc)
	}
}

func TestClosestSkipsSelf(t *testing.T) {
	ctx := context.Background()
	w := New(treeURL, Folder("n_1", "A"))
	_ = w.Navigate(ctx, treeURL)
	label, err := w.FindOne(ctx, nil, remote.CSS("span[isfolder='1']").WithText("A"))
	if err != nil {
		t.Fatalf("find label: %v", err)
	}
	node, err := w.Closest(ctx, label, "span[id]")
	if err != nil {
		t.Fatalf("closest: %v", err)
	}
	if id, _ := w.Attribute(ctx, node, "id"); id != "n_1" {
		t.Fatalf("expected n_1, got %q", id)
	}
}

func TestVisibleQuerySkipsHiddenNodes(t *testing.T) {
	ctx := context.Background()
	shy := Leaf("n_1_2", "Shy")
	shy.Hidden = true
	ghost := Folder("n_2", "A")
	ghost.Hidden = true
	folder := Folder("n_1", "A", Leaf("n_1_1", "Leaf"), shy)
	folder.Expanded = true
	w := New(treeURL, folder, ghost)
	if err := w.Navigate(ctx, treeURL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	all, err := w.FindAll(ctx, nil, remote.CSS("span[isfolder='0']"))
	if err != nil || len(all) != 2 {
		t.Fatalf("expected both leaves without a visibility filter, got %d %v", len(all), err)
	}
	visible, err := w.FindAll(ctx, nil, remote.CSS("span[isfolder='0']").OnlyVisible())
	if err != nil || len(visible) != 1 {
		t.Fatalf("expected one visible leaf, got %d %v", len(visible), err)
	}
	folders, err := w.FindAll(ctx, nil, remote.CSS("span[isfolder='1']").WithText("A").OnlyVisible())
	if err != nil || len(folders) != 1 {
		t.Fatalf("folder inside a hidden node should not count as visible, got %d %v", len(folders), err)
	}
}
