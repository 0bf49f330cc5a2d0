// Package compose builds and runs docker-compose invocations for the project
// described by a config.Config.
package compose

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/runner"
)

// Client runs compose subcommands against one compose file and project name.
type Client struct {
	cfg *config.Config
	run runner.Runner
	bin []string

	// DryRun is set when commands are only printed: readiness is not polled
	// and callers skip recording state.
	DryRun bool
}

// New resolves which compose binary to use. With compose_command "auto" the
// standalone docker-compose wins when it is on PATH, otherwise the docker
// plugin is used.
func New(cfg *config.Config, r runner.Runner) *Client {
	var bin []string
	switch cfg.ComposeCommand {
	case "docker-compose":
		bin = []string{"docker-compose"}
	case "docker compose":
		bin = []string{"docker", "compose"}
	default:
		if _, err := r.LookPath("docker-compose"); err == nil {
			bin = []string{"docker-compose"}
		} else {
			bin = []string{"docker", "compose"}
		}
	}
	logger.Debug("[DEBUG] Using compose command: %s\n", strings.Join(bin, " "))
	return &Client{cfg: cfg, run: r, bin: bin}
}

// Binary returns the compose executable and its leading arguments.
func (c *Client) Binary() []string { return append([]string(nil), c.bin...) }

// Argv returns the executable and full argument list for a compose subcommand.
func (c *Client) Argv(args ...string) (string, []string) {
	all := append([]string{}, c.bin[1:]...)
	all = append(all, "-f", c.cfg.ComposePath(), "-p", c.cfg.ProjectName)
	all = append(all, args...)
	return c.bin[0], all
}

// Run executes a compose subcommand attached to the terminal.
func (c *Client) Run(ctx context.Context, args ...string) error {
	name, argv := c.Argv(args...)
	return c.run.Run(ctx, name, argv...)
}

// RunIO executes a compose subcommand with explicit stdin and stdout.
func (c *Client) RunIO(ctx context.Context, stdin io.Reader, stdout io.Writer, args ...string) error {
	name, argv := c.Argv(args...)
	return c.run.RunIO(ctx, stdin, stdout, name, argv...)
}

// Output executes a compose subcommand and returns its stdout.
func (c *Client) Output(ctx context.Context, args ...string) (string, error) {
	name, argv := c.Argv(args...)
	return c.run.Output(ctx, name, argv...)
}

// Version checks that the compose command works at all.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run.Output(ctx, c.bin[0], append(c.bin[1:], "version")...)
	if err != nil {
		return "", fmt.Errorf("%s is not usable: %w", strings.Join(c.bin, " "), err)
	}
	return strings.TrimSpace(out), nil
}

// RunningServices lists services compose reports as running.
func (c *Client) RunningServices(ctx context.Context) ([]string, error) {
	out, err := c.Output(ctx, "ps", "--services", "--filter", "status=running")
	if err != nil {
		return nil, err
	}
	var services []string
	for _, line := range strings.Split(out, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			services = append(services, s)
		}
	}
	return services, nil
}

// WaitForService polls `ps` until service is running or the configured
// readiness timeout passes. Health checks themselves belong to compose.
func (c *Client) WaitForService(ctx context.Context, service string) error {
	if c.DryRun {
		return nil
	}
	timeout := c.cfg.ReadinessTimeout
	poll := c.cfg.ReadinessPoll
	if poll <= 0 {
		poll = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		running, err := c.RunningServices(ctx)
		if err != nil {
			logger.Debug("[DEBUG] ps failed while waiting for %s: %v\n", service, err)
		}
		for _, s := range running {
			if s == service {
				logger.Debug("[DEBUG] Service %s is running\n", service)
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service %s not running after %s", service, timeout)
		case <-ticker.C:
		}
	}
}
