// Package quick is the short dispatch table for everyday commands: one word
// maps to one fixed compose invocation.
package quick

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
)

var (
	// ErrUnknownCommand is returned for a word missing from the table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMissingArgument is returned when a command's required argument is absent.
	ErrMissingArgument = errors.New("missing argument")
	// ErrTooManyArguments is returned when a command gets more arguments than it uses.
	ErrTooManyArguments = errors.New("too many arguments")
)

// AnyArgs lifts the upper bound on a command's arguments.
const AnyArgs = -1

// Command is one entry of the table. Invocations returns the compose argument
// lists to run, in order.
type Command struct {
	Name        string
	Usage       string
	Description string
	MinArgs     int
	MaxArgs     int // most arguments the command uses, or AnyArgs
	Invocations func(svc config.Services, args []string) [][]string
}

func one(args ...string) [][]string { return [][]string{args} }

// Commands is the dispatch table in help order.
var Commands = []Command{
	{
		Name: "start", Usage: "start", Description: "Start all services in the background",
		Invocations: func(svc config.Services, args []string) [][]string { return one("up", "-d") },
	},
	{
		Name: "stop", Usage: "stop", Description: "Stop and remove all services",
		Invocations: func(svc config.Services, args []string) [][]string { return one("down") },
	},
	{
		Name: "logs", Usage: "logs [service]", Description: "Follow logs (default: web)", MaxArgs: 1,
		Invocations: func(svc config.Services, args []string) [][]string {
			target := svc.Web
			if len(args) > 0 {
				target = args[0]
			}
			return one("logs", "-f", "--tail=100", target)
		},
	},
	{
		Name: "console", Usage: "console", Description: "Open a Rails console",
		Invocations: func(svc config.Services, args []string) [][]string {
			return one("exec", svc.Web, "bundle", "exec", "rails", "console")
		},
	},
	{
		Name: "migrate", Usage: "migrate", Description: "Run pending migrations",
		Invocations: func(svc config.Services, args []string) [][]string {
			return one("exec", svc.Web, "bundle", "exec", "rails", "db:migrate")
		},
	},
	{
		Name: "test", Usage: "test [args...]", Description: "Run the test suite", MaxArgs: AnyArgs,
		Invocations: func(svc config.Services, args []string) [][]string {
			base := []string{"exec", "-e", "RAILS_ENV=test", svc.Web, "bundle", "exec", "rails", "test"}
			return [][]string{append(base, args...)}
		},
	},
	{
		Name: "add_gem", Usage: "add_gem <gem>", Description: "Add a gem to the Gemfile and restart web", MinArgs: 1, MaxArgs: 1,
		Invocations: func(svc config.Services, args []string) [][]string {
			return [][]string{
				{"exec", svc.Web, "bundle", "add", args[0]},
				{"restart", svc.Web},
			}
		},
	},
	{
		Name: "shell", Usage: "shell", Description: "Open a bash shell in the web container",
		Invocations: func(svc config.Services, args []string) [][]string { return one("exec", svc.Web, "bash") },
	},
	{
		Name: "status", Usage: "status", Description: "Show service status",
		Invocations: func(svc config.Services, args []string) [][]string { return one("ps") },
	},
}

// CheckArgs validates the argument count. Extra arguments are rejected so
// a trailing flag such as --dry-run is never dropped silently.
func (c Command) CheckArgs(args []string) error {
	if len(args) < c.MinArgs {
		return fmt.Errorf("%w: usage: railsdock quick %s", ErrMissingArgument, c.Usage)
	}
	if c.MaxArgs != AnyArgs && len(args) > c.MaxArgs {
		return fmt.Errorf("%w for %s: %q (global flags go before the command: railsdock --dry-run quick %s)",
			ErrTooManyArguments, c.Name, args[c.MaxArgs:], c.Name)
	}
	return nil
}

// Lookup finds a command by name.
func Lookup(name string) (Command, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Usage writes the command table.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: railsdock quick <command> [args]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range Commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Usage, c.Description)
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "help", "Show this help")
	_ = tw.Flush()
}

// Dispatcher runs table entries through compose.
type Dispatcher struct {
	Config  *config.Config
	Compose *compose.Client
}

// Dispatch runs the invocations of command name, stopping at the first failure.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args []string) error {
	c, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if err := c.CheckArgs(args); err != nil {
		return err
	}
	for _, inv := range c.Invocations(d.Config.Services, args) {
		logger.Debug("[DEBUG] quick %s: compose %v\n", name, inv)
		if err := d.Compose.Run(ctx, inv...); err != nil {
			return err
		}
	}
	return nil
}
