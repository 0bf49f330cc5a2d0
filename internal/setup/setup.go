// Package setup brings a fresh checkout to a running, migrated stack.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/runner"
	"railsdock/internal/state"
	"railsdock/internal/ui"
)

// Mode tells whether setup generated the Rails application or found one.
type Mode string

const (
	ModeNew      Mode = "new"
	ModeExisting Mode = "existing"
)

// DetectMode picks the branch: no Gemfile in the source directory means a new application.
func DetectMode(cfg *config.Config) Mode {
	if _, err := os.Stat(filepath.Join(cfg.SourcePath(), "Gemfile")); err == nil {
		return ModeExisting
	}
	return ModeNew
}

// Options are the setup flags.
type Options struct {
	SkipBuild bool
}

// Result summarises a completed setup.
type Result struct {
	Mode          Mode
	CreatedEnv    []string
	CompletedAt   time.Time
	ComposeBinary []string
}

// Setup runs the setup sequence.
type Setup struct {
	Config  *config.Config
	Compose *compose.Client
	Runner  runner.Runner
	Out     io.Writer
	Now     func() time.Time
}

// CheckPrerequisites runs the independent checks in parallel and reports every failure.
func (s *Setup) CheckPrerequisites(ctx context.Context) error {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"docker installed", func(ctx context.Context) error {
			_, err := s.Runner.LookPath("docker")
			return err
		}},
		{"compose available", func(ctx context.Context) error {
			v, err := s.Compose.Version(ctx)
			if err == nil {
				logger.Debug("[DEBUG] %s\n", v)
			}
			return err
		}},
		{"docker daemon running", func(ctx context.Context) error {
			_, err := s.Runner.Output(ctx, "docker", "info")
			return err
		}},
		{"compose file present", func(ctx context.Context) error {
			_, err := os.Stat(s.Config.ComposePath())
			return err
		}},
	}

	// goroutines only record results; logging happens in check order after Wait
	results := make([]error, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = c.fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, c := range checks {
		if err := results[i]; err != nil {
			logger.Error("[ERROR] ✗ %s\n", c.name)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		logger.Info("[INFO] ✓ %s\n", c.name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("prerequisite checks failed: %w", errors.Join(errs...))
	}
	return nil
}

// EnsureEnvFiles copies <name>.example to <name> for every missing env file.
// It returns the files it created.
func (s *Setup) EnsureEnvFiles() ([]string, error) {
	var created []string
	for _, name := range []string{s.Config.PostgresEnvFile, s.Config.RailsEnvFile} {
		path := s.Config.EnvPath(name)
		if _, err := os.Stat(path); err == nil {
			logger.Debug("[DEBUG] %s exists\n", path)
			continue
		}
		example := path + ".example"
		data, err := os.ReadFile(example)
		if err != nil {
			return created, fmt.Errorf("%s is missing and no %s to copy from", path, filepath.Base(example))
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
		logger.Warn("[WARN] Created %s from %s. Review the values before deploying.\n", path, filepath.Base(example))
		created = append(created, path)
	}
	return created, nil
}

// Run executes the whole sequence. The first failing step aborts setup.
func (s *Setup) Run(ctx context.Context, opts Options) (*Result, error) {
	logger.Step("==> Checking prerequisites\n")
	if err := s.CheckPrerequisites(ctx); err != nil {
		return nil, err
	}

	logger.Step("==> Checking environment files\n")
	created, err := s.EnsureEnvFiles()
	if err != nil {
		return nil, err
	}

	svc := s.Config.Services
	res := &Result{Mode: DetectMode(s.Config), CreatedEnv: created, ComposeBinary: s.Compose.Binary()}

	if res.Mode == ModeNew {
		logger.Info("[INFO] No Gemfile in %s: creating a new Rails application\n", s.Config.SourcePath())
		if err := os.MkdirAll(s.Config.SourcePath(), 0o755); err != nil {
			return nil, fmt.Errorf("create source directory: %w", err)
		}
		if err := s.step(ctx, "Generating Rails application",
			"run", "--rm", "--no-deps", svc.Web, "rails", "new", ".", "--force", "--database=postgresql", "--skip-bundle"); err != nil {
			return nil, err
		}
	} else {
		logger.Info("[INFO] Found %s: using the existing application\n", filepath.Join(s.Config.SourcePath(), "Gemfile"))
	}

	if !opts.SkipBuild {
		if err := s.step(ctx, "Building images", "build"); err != nil {
			return nil, err
		}
	}

	backing := []string{"up", "-d", svc.DB}
	if svc.Redis != "" {
		backing = append(backing, svc.Redis)
	}
	if err := s.step(ctx, "Starting database", backing...); err != nil {
		return nil, err
	}
	logger.Step("==> Waiting for %s\n", svc.DB)
	if err := s.Compose.WaitForService(ctx, svc.DB); err != nil {
		return nil, err
	}

	for _, task := range []string{"db:create", "db:migrate"} {
		if err := s.step(ctx, "Running "+task, "run", "--rm", svc.Web, "bundle", "exec", "rails", task); err != nil {
			return nil, err
		}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	res.CompletedAt = now()
	if !s.Compose.DryRun {
		state.Update(s.Config.StatePath(), func(st *state.State) {
			st.Setup = &state.SetupState{CompletedAt: res.CompletedAt, Mode: string(res.Mode)}
		})
	}

	s.summary(res)
	return res, nil
}

func (s *Setup) step(ctx context.Context, desc string, args ...string) error {
	logger.Step("==> %s\n", desc)
	if err := s.Compose.Run(ctx, args...); err != nil {
		return fmt.Errorf("%s: %w", desc, err)
	}
	return nil
}

func (s *Setup) summary(res *Result) {
	out := s.Out
	if out == nil {
		out = logger.Output()
	}
	mode := "existing application"
	if res.Mode == ModeNew {
		mode = "new application"
	}
	rows := [][2]string{
		{"Application", mode},
		{"URL", fmt.Sprintf("http://localhost:%d", s.Config.WebPort)},
		{"Compose", s.Config.ComposePath()},
	}
	lines := ui.KeyValue(rows)
	lines = append(lines, "",
		"Next steps:",
		"  railsdock quick start     start everything",
		"  railsdock quick logs      follow web logs",
		"  railsdock quick console   open a Rails console",
	)
	fmt.Fprintln(out, ui.Box("Setup complete", lines...))
}
