package setup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/runner/runnertest"
	"railsdock/internal/state"
)

type fixture struct {
	cfg   *config.Config
	rec   *runnertest.Recorder
	setup *Setup
	out   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var out bytes.Buffer
	logger.SetOutput(&out)
	t.Cleanup(func() { logger.SetOutput(nil) })

	root := t.TempDir()
	cfg := config.Default(root)
	cfg.ProjectName = "shop"
	cfg.ReadinessPoll = time.Millisecond
	cfg.ReadinessTimeout = time.Second

	require.NoError(t, os.WriteFile(cfg.ComposePath(), []byte("services: {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "env"), 0o755))
	require.NoError(t, os.WriteFile(cfg.EnvPath("postgres.env"), []byte("POSTGRES_USER=rails\n"), 0o644))
	require.NoError(t, os.WriteFile(cfg.EnvPath("rails.env"), []byte("RAILS_ENV=development\n"), 0o644))

	rec := runnertest.New()
	c := compose.New(cfg, rec)
	rec.Outputs[composeLine(cfg, "ps")] = "db\nredis\n"
	return &fixture{
		cfg: cfg,
		rec: rec,
		out: &out,
		setup: &Setup{
			Config:  cfg,
			Compose: c,
			Runner:  rec,
			Out:     &out,
			Now:     func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) },
		},
	}
}

func composeLine(cfg *config.Config, args string) string {
	return "docker-compose -f " + cfg.ComposePath() + " -p shop " + args
}

// composeCalls returns recorded compose subcommands, dropping the ps polling.
func (f *fixture) composeCalls() []string {
	prefix := composeLine(f.cfg, "")
	var out []string
	for _, l := range f.rec.Lines() {
		if len(l) > len(prefix) && l[:len(prefix)] == prefix && l[len(prefix):len(prefix)+2] != "ps" {
			out = append(out, l[len(prefix):])
		}
	}
	return out
}

func TestDetectMode(t *testing.T) {
	cfg := config.Default(t.TempDir())
	assert.Equal(t, ModeNew, DetectMode(cfg))

	require.NoError(t, os.MkdirAll(cfg.SourcePath(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourcePath(), "Gemfile"), []byte("source 'https://rubygems.org'\n"), 0o644))
	assert.Equal(t, ModeExisting, DetectMode(cfg))
}

func TestRun_NewApplicationWithoutGemfile(t *testing.T) {
	f := newFixture(t)

	res, err := f.setup.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeNew, res.Mode)

	assert.Equal(t, []string{
		"run --rm --no-deps web rails new . --force --database=postgresql --skip-bundle",
		"build",
		"up -d db redis",
		"run --rm web bundle exec rails db:create",
		"run --rm web bundle exec rails db:migrate",
	}, f.composeCalls())
	assert.DirExists(t, f.cfg.SourcePath())
	assert.Contains(t, f.out.String(), "creating a new Rails application")
	assert.Contains(t, f.out.String(), "Setup complete")

	st := state.LoadState(f.cfg.StatePath())
	require.NotNil(t, st.Setup)
	assert.Equal(t, "new", st.Setup.Mode)
}

func TestRun_ExistingApplication(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.cfg.SourcePath(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.SourcePath(), "Gemfile"), []byte(""), 0o644))

	res, err := f.setup.Run(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)
	assert.Equal(t, ModeExisting, res.Mode)
	assert.Equal(t, []string{
		"up -d db redis",
		"run --rm web bundle exec rails db:create",
		"run --rm web bundle exec rails db:migrate",
	}, f.composeCalls())
	assert.Contains(t, f.out.String(), "using the existing application")
}

func TestRun_PrerequisiteFailuresAreAllReported(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	f.rec.Failures["docker info"] = 1
	require.NoError(t, os.Remove(f.cfg.ComposePath()))

	_, err := f.setup.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker daemon running")
	assert.Contains(t, err.Error(), "compose file present")
	assert.Empty(t, f.composeCalls(), "nothing runs when checks fail")
}

func TestCheckPrerequisites_ReportsInCheckOrder(t *testing.T) {
	f := newFixture(t)
	f.rec.Failures["docker info"] = 1

	err := f.setup.CheckPrerequisites(context.Background())
	require.Error(t, err)

	out := f.out.String()
	var last int
	for _, want := range []string{"✓ docker installed", "✓ compose available", "✗ docker daemon running", "✓ compose file present"} {
		i := strings.Index(out, want)
		require.GreaterOrEqual(t, i, last, "%q out of order in:\n%s", want, out)
		last = i
	}
}

func TestRun_StopsAtFirstFailedStep(t *testing.T) {
	f := newFixture(t)
	f.rec.Failures[composeLine(f.cfg, "build")] = 2

	_, err := f.setup.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Building images")
	assert.Equal(t, []string{
		"run --rm --no-deps web rails new . --force --database=postgresql --skip-bundle",
		"build",
	}, f.composeCalls())
	assert.Nil(t, state.LoadState(f.cfg.StatePath()).Setup)
}

func TestEnsureEnvFiles(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.cfg.EnvPath("rails.env")))
	require.NoError(t, os.WriteFile(f.cfg.EnvPath("rails.env.example"), []byte("SECRET_KEY_BASE=changeme\n"), 0o644))

	created, err := f.setup.EnsureEnvFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{f.cfg.EnvPath("rails.env")}, created)

	data, err := os.ReadFile(f.cfg.EnvPath("rails.env"))
	require.NoError(t, err)
	assert.Equal(t, "SECRET_KEY_BASE=changeme\n", string(data))

	// postgres.env existed and was left alone
	data, err = os.ReadFile(f.cfg.EnvPath("postgres.env"))
	require.NoError(t, err)
	assert.Equal(t, "POSTGRES_USER=rails\n", string(data))
}

func TestEnsureEnvFiles_NoExample(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.cfg.EnvPath("postgres.env")))

	_, err := f.setup.EnsureEnvFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.env.example")
}
