package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/prompt"
	"railsdock/internal/runner"
	"railsdock/internal/ui"
)

// UsageError marks a bad invocation. railsdock exits with status 2 for it.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, a ...any) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

// usageArgs turns positional-argument validation failures into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	debug       bool
	dryRun      bool
	yes         bool
	noColor     bool
	configFile  string
	projectRoot string
}

// env is the process environment a command tree runs against. Tests swap the
// streams and the runner.
type env struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	newRunner  func(dryRun bool) runner.Runner
	isTerminal func() bool
	now        func() time.Time
}

func defaultEnv() *env {
	return &env{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		newRunner: func(dryRun bool) runner.Runner {
			return runner.New(dryRun)
		},
		isTerminal: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		now: time.Now,
	}
}

// app bundles what a subcommand needs once flags are parsed.
type app struct {
	flags    *globalFlags
	env      *env
	cfg      *config.Config
	run      runner.Runner
	compose  *compose.Client
	prompter prompt.Prompter
}

// appFunc loads the project configuration and wires the runner, compose
// client and prompter for the current flags.
type appFunc func() (*app, error)

func newApp(flags *globalFlags, e *env) appFunc {
	return func() (*app, error) {
		cfg, err := config.LoadConfig(flags.projectRoot, flags.configFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("[DEBUG] Project %s at %s\n", cfg.ProjectName, cfg.ProjectRoot)

		r := e.newRunner(flags.dryRun)
		c := compose.New(cfg, r)
		c.DryRun = flags.dryRun

		var p prompt.Prompter = prompt.NewInteractive(e.stdin, e.stdout)
		if flags.yes {
			p = prompt.AutoApprove{Next: p}
		}
		return &app{flags: flags, env: e, cfg: cfg, run: r, compose: c, prompter: p}, nil
	}
}

// newRootCmd builds the railsdock command tree.
func newRootCmd(e *env) *cobra.Command {
	flags := &globalFlags{}
	build := newApp(flags, e)

	rootCmd := &cobra.Command{
		Use:   "railsdock",
		Short: "Manage a dockerized Rails development stack",
		Long: `railsdock sets up, runs and cleans a Rails application that lives in
Docker Compose next to PostgreSQL, Redis, Sidekiq and Nginx.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		// PersistentPreRun initializes the logger before any subcommand runs.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(flags.debug, flags.noColor)
			logger.SetOutput(e.stdout)
			if flags.noColor {
				ui.DisableColor()
			}
		},
	}
	rootCmd.SetIn(e.stdin)
	rootCmd.SetOut(e.stdout)
	rootCmd.SetErr(e.stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to configuration file (default <project-root>/"+config.DefaultFile+")")
	pf.StringVar(&flags.projectRoot, "project-root", "", "Project directory (default $RAILSDOCK_PROJECT_ROOT or the working directory)")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Print commands instead of running them")
	pf.BoolVarP(&flags.yes, "yes", "y", false, "Answer yes to y/N questions (never to the full reset phrase)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newSetupCmd(build),
		newCleanupCmd(build),
		newQuickCmd(build),
		newTasksCmd(build),
		newRunCmd(build),
		newDBCmd(build),
		newAliasesCmd(build),
	)
	return rootCmd
}

// Execute runs railsdock with the process arguments and returns the exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, defaultEnv(), os.Args[1:])
}

func execute(ctx context.Context, e *env, args []string) int {
	logger.SetOutput(e.stdout)
	rootCmd := newRootCmd(e)
	rootCmd.SetArgs(args)

	c, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	logger.Error("[ERROR] %v\n", err)

	var ue *UsageError
	if errors.As(err, &ue) {
		if c != nil && c.Annotations[customUsage] == "" {
			fmt.Fprint(e.stderr, c.UsageString())
		}
		return 2
	}
	return runner.ExitCode(err)
}

// customUsage marks commands that print their own usage before returning a
// UsageError.
const customUsage = "railsdock/custom-usage"

var ownUsage = map[string]string{customUsage: "true"}
