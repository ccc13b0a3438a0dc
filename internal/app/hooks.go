package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// hookEnv is exported to every post command.
type hookEnv struct {
	OutputPath string
	ReportPath string
	Subject    string
}

func runPostCommands(ctx context.Context, commands []string, env hookEnv, stdout bool) error {
	for _, cmdStr := range dedupePreserveOrder(commands) {
		if strings.HasPrefix(cmdStr, "#") {
			continue
		}
		cmd, err := commandForShell(ctx, cmdStr)
		if err != nil {
			return err
		}
		cmd.Env = append(os.Environ(),
			"HELPTREE_OUTPUT_PATH="+env.OutputPath,
			"HELPTREE_REPORT_PATH="+env.ReportPath,
			"HELPTREE_SUBJECT="+env.Subject,
		)
		if stdout {
			cmd.Stdout = os.Stderr
			cmd.Stderr = os.Stderr
		}
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("post command failed %q: %w", cmdStr, err)
		}
	}
	return nil
}

func commandForShell(ctx context.Context, command string) (*exec.Cmd, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("empty command")
	}
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command), nil
	}
	return exec.CommandContext(ctx, "sh", "-c", command), nil
}

func dedupePreserveOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, raw := range items {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
