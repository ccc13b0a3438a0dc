// Package cli wires the helptree commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"helptree/internal/app"
	"helptree/internal/config"
	"helptree/internal/logging"
)

type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "error"
}

func (e ExitError) Unwrap() error { return e.Err }

func usage(err error) error { return ExitError{Code: 2, Err: err} }

// Runner executes one run.
type Runner func(ctx context.Context, opts app.Options, deps app.Deps) (app.Result, error)

// Inspector reports selector matches on the live help center.
type Inspector func(ctx context.Context, opts app.Options, check string, deps app.Deps) (app.Inspection, error)

// Env holds what the commands need from the outside world.
type Env struct {
	Run            Runner
	Inspect        Inspector
	PromptPassword func(email string) (string, error)
	Wizard         func(path string) error
	Out            io.Writer
	Err            io.Writer
}

func (e Env) withDefaults() Env {
	if e.Run == nil {
		e.Run = app.RunWith
	}
	if e.Inspect == nil {
		e.Inspect = app.Inspect
	}
	if e.PromptPassword == nil {
		e.PromptPassword = promptPassword
	}
	if e.Wizard == nil {
		e.Wizard = RunConfigWizard
	}
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Err == nil {
		e.Err = os.Stderr
	}
	return e
}

// Execute runs the command line and maps the outcome to an exit code:
// 0 success, 1 run failure, 2 usage error.
func Execute(ctx context.Context, args []string, env Env) (int, error) {
	root := NewRootCommand(env)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0, nil
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, exitErr.Err
	}
	return 1, err
}

func NewRootCommand(env Env) *cobra.Command {
	env = env.withDefaults()
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "helptree",
		Short: "Archive a help-center documentation subtree into one file",
		Long: `helptree signs in to the help center, expands the configured subtree,
then opens every page beneath it and writes the cleaned content to a single
HTML or Markdown archive.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runArchive(cmd, env, f, f.dryRun, nil)
		},
	}
	root.SetOut(env.Out)
	root.SetErr(env.Err)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usage(err) })
	f.registerPersistent(root.PersistentFlags())
	f.registerRun(root.Flags())

	root.AddCommand(newListCommand(env, f), newInspectCommand(env, f), newInitConfigCommand(env))
	return root
}

func newListCommand(env Env, f *rootFlags) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Sign in, expand the subtree and print its leaves",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := map[string]any{}
			if manifest != "" {
				extra["output.manifest_path"] = manifest
			}
			return runArchive(cmd, env, f, true, extra)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "Also write the leaves as JSON to this file")
	return cmd
}

func newInspectCommand(env Env, f *rootFlags) *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Sign in and count matches for the configured tree and content selectors",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRunConfig(env, f.configPath, f.overrides(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			in, err := env.Inspect(cmd.Context(), app.Options{Config: cfg}, check, app.Deps{
				Logger:   logger,
				Progress: env.Out,
			})
			if err != nil {
				return err
			}
			app.PrintInspection(env.Out, in)
			return nil
		},
	}
	cmd.Flags().StringVar(&check, "check-selector", "", "Also describe the first elements matching this selector")
	return cmd
}

func newInitConfigCommand(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a config file interactively",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usage(err)
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			return env.Wizard(path)
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usage(err)
	}
	return nil
}

func runArchive(cmd *cobra.Command, env Env, f *rootFlags, dryRun bool, extra map[string]any) error {
	overrides := f.overrides(cmd)
	for k, v := range extra {
		overrides[k] = v
	}
	cfg, logger, err := loadRunConfig(env, f.configPath, overrides)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	_, err = env.Run(cmd.Context(), app.Options{Config: cfg, DryRun: dryRun}, app.Deps{
		Logger:   logger,
		Progress: env.Out,
	})
	return err
}

// loadRunConfig loads and validates the config, asks for a missing password
// and builds the logger. Config problems are usage errors.
func loadRunConfig(env Env, path string, overrides map[string]any) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return config.Config{}, nil, usage(err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, usage(err)
	}
	if cfg.Auth.Enabled() && cfg.Auth.Password == "" {
		pw, err := env.PromptPassword(cfg.Auth.Email)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("read password: %w", err)
		}
		cfg.Auth.Password = pw
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, usage(err)
	}
	return cfg, logger, nil
}
