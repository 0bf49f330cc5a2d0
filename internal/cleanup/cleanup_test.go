package cleanup

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/prompt"
	"railsdock/internal/runner"
	"railsdock/internal/runner/runnertest"
	"railsdock/internal/state"
)

const composePrefix = "docker-compose -f %s/docker-compose.yml -p shop "

type fixture struct {
	cfg     *config.Config
	rec     *runnertest.Recorder
	cleaner *Cleaner
	log     *bytes.Buffer
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	var log bytes.Buffer
	logger.SetOutput(&log)
	t.Cleanup(func() { logger.SetOutput(nil) })

	cfg := config.Default(t.TempDir())
	cfg.ProjectName = "shop"
	rec := runnertest.New()
	return &fixture{
		cfg: cfg,
		rec: rec,
		log: &log,
		cleaner: &Cleaner{
			Config:   cfg,
			Compose:  compose.New(cfg, rec),
			Runner:   rec,
			Prompter: prompt.NewInteractive(strings.NewReader(input), &log),
			Now:      func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
		},
	}
}

func (f *fixture) composeLine(args string) string {
	return strings.Replace(composePrefix, "%s", f.cfg.ProjectRoot, 1) + args
}

func dockerLines(t *testing.T, level Level) []string {
	t.Helper()
	steps, err := Plan(config.Default("/srv/shop"), level)
	require.NoError(t, err)
	var lines []string
	for _, s := range steps {
		if !s.Compose {
			lines = append(lines, runner.Format("docker", s.Args))
		}
	}
	return lines
}

// isSubsequence reports whether every element of sub appears in seq in the same order.
func isSubsequence(sub, seq []string) bool {
	i := 0
	for _, s := range seq {
		if i < len(sub) && sub[i] == s {
			i++
		}
	}
	return i == len(sub)
}

func TestPlan_LadderIsCumulative(t *testing.T) {
	for i := 1; i < len(Ladder); i++ {
		prev, next := dockerLines(t, Ladder[i-1]), dockerLines(t, Ladder[i])
		assert.Greater(t, len(next), len(prev), "%s must add steps to %s", Ladder[i], Ladder[i-1])
		assert.True(t, isSubsequence(prev, next), "%s must contain %s in order:\n%v\n%v", Ladder[i], Ladder[i-1], prev, next)
	}
}

func TestPlan_Commands(t *testing.T) {
	assert.Equal(t, []string{"docker container prune -f"}, dockerLines(t, Light))
	assert.Equal(t, []string{
		"docker container prune -f",
		"docker image prune -a -f",
		"docker network prune -f",
		"docker volume prune -f",
		"docker builder prune -f",
	}, dockerLines(t, Deep))
	assert.Equal(t, []string{"docker system df"}, dockerLines(t, Status))
}

func TestPlan_FullStartsWithDeep(t *testing.T) {
	cfg := config.Default("/srv/shop")
	deep, err := Plan(cfg, Deep)
	require.NoError(t, err)
	full, err := Plan(cfg, Full)
	require.NoError(t, err)

	require.Len(t, full, len(deep)+2)
	assert.Equal(t, deep, full[:len(deep)])
	assert.True(t, full[len(deep)].Compose)
	assert.Equal(t, []string{"down", "-v", "--rmi", "all", "--remove-orphans"}, full[len(deep)].Args)
	assert.Equal(t, []string{"system", "prune", "-a", "-f", "--volumes"}, full[len(full)-1].Args)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("deep")
	require.NoError(t, err)
	assert.Equal(t, Deep, l)

	_, err = ParseLevel("DEEP")
	assert.Error(t, err)
	_, err = ParseLevel("nuke")
	assert.Error(t, err)
}

func TestRun_LightNeedsNoConfirmation(t *testing.T) {
	f := newFixture(t, "")

	res, err := f.cleaner.Run(context.Background(), Light, Options{})
	require.NoError(t, err)
	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"docker container prune -f"}, f.rec.Lines())

	last, ok := state.LoadState(f.cfg.StatePath()).LastCleanup()
	require.True(t, ok)
	assert.Equal(t, "light", last.Level)
}

func TestRun_MediumDeclined(t *testing.T) {
	f := newFixture(t, "n\n")

	res, err := f.cleaner.Run(context.Background(), Medium, Options{})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, f.rec.Calls())
}

func TestRun_DeepConfirmed(t *testing.T) {
	f := newFixture(t, "y\n")

	_, err := f.cleaner.Run(context.Background(), Deep, Options{})
	require.NoError(t, err)
	assert.Equal(t, dockerLines(t, Deep), f.rec.Lines())
}

func TestRun_FullResetRequiresExactPhrase(t *testing.T) {
	inputs := []string{
		"",
		"y\n",
		"yes\n",
		"delete all data\n",
		"Delete All Data\n",
		"DELETE ALL DATA \n",
		"DELETE ALL\n",
	}
	for _, in := range inputs {
		t.Run(strings.TrimSpace(in), func(t *testing.T) {
			f := newFixture(t, in)
			res, err := f.cleaner.Run(context.Background(), Full, Options{})
			require.NoError(t, err)
			assert.True(t, res.Cancelled)
			assert.Empty(t, f.rec.Calls(), "nothing may run without the phrase")
		})
	}
}

func TestRun_FullResetWithPhrase(t *testing.T) {
	f := newFixture(t, ResetPhrase+"\n")

	_, err := f.cleaner.Run(context.Background(), Full, Options{})
	require.NoError(t, err)

	deep := dockerLines(t, Deep)
	want := append(append([]string{}, deep...),
		f.composeLine("down -v --rmi all --remove-orphans"),
		"docker system prune -a -f --volumes",
	)
	assert.Equal(t, want, f.rec.Lines())
}

func TestRun_FullResetPhraseFlag(t *testing.T) {
	f := newFixture(t, "")
	res, err := f.cleaner.Run(context.Background(), Full, Options{ConfirmPhrase: "delete all data"})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, f.rec.Calls())

	res, err = f.cleaner.Run(context.Background(), Full, Options{ConfirmPhrase: ResetPhrase})
	require.NoError(t, err)
	assert.False(t, res.Cancelled)
	assert.NotEmpty(t, f.rec.Calls())
}

func TestRun_AutoApproveDoesNotBypassPhrase(t *testing.T) {
	f := newFixture(t, "")
	f.cleaner.Prompter = prompt.AutoApprove{Next: f.cleaner.Prompter}

	res, err := f.cleaner.Run(context.Background(), Full, Options{})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, f.rec.Calls())
}

func TestRun_FailedStepsDoNotStopTheRunButFailIt(t *testing.T) {
	f := newFixture(t, "y\n")
	f.rec.Failures["docker network prune"] = 1
	f.rec.Failures["docker volume prune"] = 3

	res, err := f.cleaner.Run(context.Background(), Deep, Options{})
	require.Error(t, err)
	assert.Equal(t, dockerLines(t, Deep), f.rec.Lines(), "later steps still run")
	assert.Len(t, res.Failed, 2)
	assert.Contains(t, err.Error(), "2 of 5 steps failed")
	assert.Contains(t, err.Error(), "Removing unused volumes")
	assert.Equal(t, 1, runner.ExitCode(err))
	assert.Contains(t, f.log.String(), "[WARN] Removing unused networks failed")

	last, ok := state.LoadState(f.cfg.StatePath()).LastCleanup()
	require.True(t, ok)
	assert.Equal(t, 2, last.Failed)
}

func TestRun_DB(t *testing.T) {
	f := newFixture(t, "y\n")

	_, err := f.cleaner.Run(context.Background(), DB, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		f.composeLine("down"),
		"docker volume rm shop_postgres_data",
	}, f.rec.Lines())
}

func TestRun_StatusDoesNotRecord(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.cleaner.Run(context.Background(), Status, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"docker system df"}, f.rec.Lines())
	_, ok := state.LoadState(f.cfg.StatePath()).LastCleanup()
	assert.False(t, ok)
	assert.Contains(t, f.log.String(), "No cleanup recorded")
}
