package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRunPostCommandsExportsEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	out := filepath.Join(t.TempDir(), "env.txt")
	cmds := []string{
		"# comment",
		`printf '%s|%s' "$HELPTREE_SUBJECT" "$HELPTREE_OUTPUT_PATH" > ` + out,
		"",
	}
	err := runPostCommands(context.Background(), cmds, hookEnv{OutputPath: "a.html", Subject: "A > B"}, false)
	if err != nil {
		t.Fatalf("runPostCommands: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "A > B|a.html" {
		t.Fatalf("unexpected env %q", data)
	}
}

func TestRunPostCommandsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if err := runPostCommands(context.Background(), []string{"exit 3"}, hookEnv{}, false); err == nil {
		t.Fatalf("expected failing command to return an error")
	}
}

func TestCommandForShellRejectsEmpty(t *testing.T) {
	if _, err := commandForShell(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestDedupePreserveOrder(t *testing.T) {
	got := dedupePreserveOrder([]string{" b", "a", "b", "", "a "})
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("unexpected %v", got)
	}
}
