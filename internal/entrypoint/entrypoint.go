// Package entrypoint adapts process arguments and signals to the cli package.
package entrypoint

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"helptree/internal/cli"
	"helptree/internal/config"
)

// Execute runs helptree with os-style args (program name first). Started
// bare with no config file anywhere on the search path, it offers the config
// wizard instead of failing on a missing subject.
func Execute(args []string) (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) <= 1 && firstRun() {
		fmt.Fprintln(os.Stderr, "No helptree config found; starting the setup wizard.")
		return cli.Execute(ctx, []string{"init-config", config.DefaultConfigFile}, cli.Env{})
	}
	return cli.Execute(ctx, args[1:], cli.Env{})
}

func firstRun() bool {
	if _, ok := os.LookupEnv("HELPTREE_SUBJECT"); ok {
		return false
	}
	return config.FindConfigFile(config.SearchDirs()) == ""
}
