// Package tasks holds the long dispatch table that mirrors the project's
// Makefile targets. Every task is a single compose invocation; extra
// arguments given on the command line are appended.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
)

// ErrUnknownTask is returned when no task has the requested name.
var ErrUnknownTask = errors.New("unknown task")

// Task is one row of the table.
type Task struct {
	Name        string
	Description string
	Args        []string
	// Custom marks tasks that come from railsdock.yaml.
	Custom bool
}

func rails(svc config.Services, args ...string) []string {
	return append([]string{"exec", svc.Web, "bundle", "exec", "rails"}, args...)
}

func railsTest(svc config.Services, args ...string) []string {
	return append([]string{"exec", "-e", "RAILS_ENV=test", svc.Web, "bundle", "exec"}, args...)
}

func tail(service string) []string {
	args := []string{"logs", "-f", "--tail=100"}
	if service != "" {
		args = append(args, service)
	}
	return args
}

// Builtin returns the stock table for the given service names.
func Builtin(svc config.Services) []Task {
	return []Task{
		// lifecycle
		{Name: "up", Description: "Start all services in the background", Args: []string{"up", "-d"}},
		{Name: "down", Description: "Stop and remove all services", Args: []string{"down"}},
		{Name: "restart", Description: "Restart all services", Args: []string{"restart"}},
		{Name: "build", Description: "Build images", Args: []string{"build"}},
		{Name: "rebuild", Description: "Build images without cache", Args: []string{"build", "--no-cache"}},
		{Name: "pull", Description: "Pull service images", Args: []string{"pull"}},
		{Name: "ps", Description: "List containers", Args: []string{"ps"}},
		{Name: "top", Description: "Show running processes", Args: []string{"top"}},
		{Name: "config", Description: "Validate and print the compose file", Args: []string{"config"}},

		// logs
		{Name: "logs", Description: "Follow logs of all services", Args: tail("")},
		{Name: "logs-web", Description: "Follow web logs", Args: tail(svc.Web)},
		{Name: "logs-db", Description: "Follow database logs", Args: tail(svc.DB)},
		{Name: "logs-redis", Description: "Follow redis logs", Args: tail(svc.Redis)},
		{Name: "logs-sidekiq", Description: "Follow sidekiq logs", Args: tail(svc.Worker)},
		{Name: "logs-nginx", Description: "Follow nginx logs", Args: tail(svc.Proxy)},

		// shells
		{Name: "console", Description: "Rails console", Args: rails(svc, "console")},
		{Name: "console-sandbox", Description: "Rails console, rolled back on exit", Args: rails(svc, "console", "--sandbox")},
		{Name: "shell", Description: "Bash in the web container", Args: []string{"exec", svc.Web, "bash"}},
		{Name: "dbconsole", Description: "Database console through Rails", Args: rails(svc, "dbconsole")},
		{Name: "redis-cli", Description: "Redis CLI", Args: []string{"exec", svc.Redis, "redis-cli"}},

		// database
		{Name: "db-create", Description: "Create the databases", Args: rails(svc, "db:create")},
		{Name: "db-migrate", Description: "Run pending migrations", Args: rails(svc, "db:migrate")},
		{Name: "db-rollback", Description: "Roll back the last migration", Args: rails(svc, "db:rollback")},
		{Name: "db-migrate-status", Description: "Show migration status", Args: rails(svc, "db:migrate:status")},
		{Name: "db-seed", Description: "Load seed data", Args: rails(svc, "db:seed")},
		{Name: "db-setup", Description: "Create, load schema and seed", Args: rails(svc, "db:setup")},
		{Name: "db-prepare", Description: "Create or migrate as needed", Args: rails(svc, "db:prepare")},
		{Name: "db-reset", Description: "Drop, recreate and seed the database", Args: rails(svc, "db:reset")},
		{Name: "db-test-prepare", Description: "Prepare the test database", Args: railsTest(svc, "rails", "db:prepare")},

		// code
		{Name: "routes", Description: "Print routes", Args: rails(svc, "routes")},
		{Name: "test", Description: "Run the test suite", Args: railsTest(svc, "rails", "test")},
		{Name: "test-system", Description: "Run system tests", Args: railsTest(svc, "rails", "test:system")},
		{Name: "rspec", Description: "Run RSpec", Args: railsTest(svc, "rspec")},
		{Name: "rubocop", Description: "Lint with RuboCop", Args: []string{"exec", svc.Web, "bundle", "exec", "rubocop"}},
		{Name: "rubocop-fix", Description: "Lint and autocorrect", Args: []string{"exec", svc.Web, "bundle", "exec", "rubocop", "-A"}},
		{Name: "brakeman", Description: "Security scan", Args: []string{"exec", svc.Web, "bundle", "exec", "brakeman"}},

		// dependencies and assets
		{Name: "bundle", Description: "Install gems", Args: []string{"exec", svc.Web, "bundle", "install"}},
		{Name: "bundle-update", Description: "Update gems", Args: []string{"exec", svc.Web, "bundle", "update"}},
		{Name: "bundle-outdated", Description: "List outdated gems", Args: []string{"exec", svc.Web, "bundle", "outdated"}},
		{Name: "yarn-install", Description: "Install JavaScript packages", Args: []string{"exec", svc.Web, "yarn", "install"}},
		{Name: "assets-precompile", Description: "Precompile assets", Args: rails(svc, "assets:precompile")},
		{Name: "assets-clobber", Description: "Remove compiled assets", Args: rails(svc, "assets:clobber")},
		{Name: "credentials-edit", Description: "Edit encrypted credentials", Args: []string{"exec", "-e", "EDITOR=vi", svc.Web, "bundle", "exec", "rails", "credentials:edit"}},
		{Name: "tmp-clear", Description: "Clear tmp/", Args: rails(svc, "tmp:clear")},
		{Name: "log-clear", Description: "Truncate log files", Args: rails(svc, "log:clear")},

		// workers and proxy
		{Name: "cache-clear", Description: "Flush redis", Args: []string{"exec", svc.Redis, "redis-cli", "FLUSHALL"}},
		{Name: "sidekiq-restart", Description: "Restart sidekiq", Args: []string{"restart", svc.Worker}},
		{Name: "nginx-reload", Description: "Reload nginx configuration", Args: []string{"exec", svc.Proxy, "nginx", "-s", "reload"}},
		{Name: "nginx-test", Description: "Test nginx configuration", Args: []string{"exec", svc.Proxy, "nginx", "-t"}},
	}
}

// Table merges the builtin table with tasks from config. A config task with a
// builtin name replaces it in place; new ones follow, sorted by name.
func Table(cfg *config.Config) []Task {
	table := Builtin(cfg.Services)
	index := make(map[string]int, len(table))
	for i, t := range table {
		index[t.Name] = i
	}
	names := make([]string, 0, len(cfg.Tasks))
	for name := range cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ct := cfg.Tasks[name]
		t := Task{Name: name, Description: ct.Description, Args: ct.Args, Custom: true}
		if i, ok := index[name]; ok {
			table[i] = t
			continue
		}
		table = append(table, t)
	}
	return table
}

// Find returns the task called name.
func Find(table []Task, name string) (Task, bool) {
	for _, t := range table {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// List writes the table as aligned help text.
func List(w io.Writer, table []Task) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range table {
		desc := t.Description
		if t.Custom {
			desc += " (railsdock.yaml)"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", t.Name, desc)
	}
	_ = tw.Flush()
}

// Run executes task name with extra appended to its compose arguments.
func Run(ctx context.Context, c *compose.Client, table []Task, name string, extra []string) error {
	t, ok := Find(table, name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	args := append(append([]string{}, t.Args...), extra...)
	logger.Debug("[DEBUG] task %s: compose %v\n", name, args)
	return c.Run(ctx, args...)
}
