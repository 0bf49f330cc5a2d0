// Package cleanup implements the severity ladder that reclaims Docker disk space.
//
// Each level runs every step of the level below it, in the same order, plus one
// more class of prune. Steps are best-effort: a failed step is reported and the
// remaining steps still run, but the run as a whole fails.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/prompt"
	"railsdock/internal/runner"
	"railsdock/internal/state"
	"railsdock/internal/ui"
)

// Level selects how much gets removed.
type Level string

const (
	Light  Level = "light"
	Medium Level = "medium"
	Deep   Level = "deep"
	Full   Level = "full"
	DB     Level = "db"
	Status Level = "status"
)

// Ladder is the escalation order of the prune levels.
var Ladder = []Level{Light, Medium, Deep, Full}

// Levels lists every accepted level in menu order.
var Levels = []Level{Light, Medium, Deep, Full, DB, Status}

// ResetPhrase must be typed verbatim before a full reset.
const ResetPhrase = "DELETE ALL DATA"

var descriptions = map[Level]string{
	Light:  "remove stopped containers",
	Medium: "light + remove unused images",
	Deep:   "medium + remove unused networks, volumes and build cache",
	Full:   "deep + remove this project's containers, images and volumes (all data)",
	DB:     "stop the stack and delete the database volume",
	Status: "show Docker disk usage",
}

// Describe returns the one-line help for a level.
func Describe(l Level) string { return descriptions[l] }

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown cleanup level %q", s)
}

// Step is one external command in a cleanup plan.
type Step struct {
	Description string
	// Compose steps run through the compose client, others run `docker`.
	Compose bool
	Args    []string
}

func docker(desc string, args ...string) Step {
	return Step{Description: desc, Args: args}
}

// Plan returns the ordered steps for a level.
func Plan(cfg *config.Config, level Level) ([]Step, error) {
	light := []Step{
		docker("Removing stopped containers", "container", "prune", "-f"),
	}
	medium := append(append([]Step{}, light...),
		docker("Removing unused images", "image", "prune", "-a", "-f"),
	)
	deep := append(append([]Step{}, medium...),
		docker("Removing unused networks", "network", "prune", "-f"),
		docker("Removing unused volumes", "volume", "prune", "-f"),
		docker("Removing build cache", "builder", "prune", "-f"),
	)

	switch level {
	case Light:
		return light, nil
	case Medium:
		return medium, nil
	case Deep:
		return deep, nil
	case Full:
		return append(append([]Step{}, deep...),
			Step{
				Description: "Removing project containers, images and volumes",
				Compose:     true,
				Args:        []string{"down", "-v", "--rmi", "all", "--remove-orphans"},
			},
			docker("Removing everything else unused", "system", "prune", "-a", "-f", "--volumes"),
		), nil
	case DB:
		return []Step{
			{Description: "Stopping services", Compose: true, Args: []string{"down"}},
			docker("Removing database volume "+cfg.Volume(), "volume", "rm", cfg.Volume()),
		}, nil
	case Status:
		return []Step{docker("Docker disk usage", "system", "df")}, nil
	}
	return nil, fmt.Errorf("unknown cleanup level %q", level)
}

// Options carries per-invocation answers supplied by flags.
type Options struct {
	// ConfirmPhrase, when set, is checked instead of prompting for the reset phrase.
	ConfirmPhrase string
}

// Result describes what a run did.
type Result struct {
	Level     Level
	Cancelled bool
	Ran       []Step
	Failed    []error
}

// Cleaner runs cleanup plans.
type Cleaner struct {
	Config   *config.Config
	Compose  *compose.Client
	Runner   runner.Runner
	Prompter prompt.Prompter
	Now      func() time.Time
}

// Run confirms (when the level needs it) and executes the plan for level.
func (c *Cleaner) Run(ctx context.Context, level Level, opts Options) (*Result, error) {
	steps, err := Plan(c.Config, level)
	if err != nil {
		return nil, err
	}
	res := &Result{Level: level}

	ok, err := c.confirm(ctx, level, steps, opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Warn("[WARN] Cleanup cancelled. Nothing was removed.\n")
		res.Cancelled = true
		return res, nil
	}

	for _, s := range steps {
		logger.Step("==> %s\n", s.Description)
		var err error
		if s.Compose {
			err = c.Compose.Run(ctx, s.Args...)
		} else {
			err = c.Runner.Run(ctx, "docker", s.Args...)
		}
		res.Ran = append(res.Ran, s)
		if err != nil {
			logger.Warn("[WARN] %s failed: %v\n", s.Description, err)
			res.Failed = append(res.Failed, fmt.Errorf("%s: %w", s.Description, err))
		}
	}

	if level == Status {
		c.printLastCleanup()
		return res, errors.Join(res.Failed...)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if !c.Compose.DryRun {
		state.Update(c.Config.StatePath(), func(s *state.State) {
			s.RecordCleanup(string(level), now(), len(res.Failed))
		})
	}

	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%s cleanup: %d of %d steps failed: %w",
			level, len(res.Failed), len(steps), errors.Join(res.Failed...))
	}
	logger.Success("[OK] %s cleanup finished\n", level)
	return res, nil
}

func (c *Cleaner) confirm(ctx context.Context, level Level, steps []Step, opts Options) (bool, error) {
	switch level {
	case Light, Status:
		return true, nil
	case Full:
		fmt.Fprintln(logger.Output(), ui.WarningBox("Full reset", planLines(c, steps)...))
		if opts.ConfirmPhrase != "" {
			return opts.ConfirmPhrase == ResetPhrase, nil
		}
		return c.Prompter.ConfirmPhrase(ctx, "This deletes ALL containers, images, volumes and database data.", ResetPhrase)
	default:
		fmt.Fprintln(logger.Output(), ui.WarningBox(strings.ToUpper(string(level[:1]))+string(level[1:])+" cleanup", planLines(c, steps)...))
		return c.Prompter.Confirm(ctx, "Continue?")
	}
}

func planLines(c *Cleaner, steps []Step) []string {
	lines := make([]string, 0, len(steps))
	for _, s := range steps {
		var cmd string
		if s.Compose {
			name, args := c.Compose.Argv(s.Args...)
			cmd = runner.Format(name, args)
		} else {
			cmd = runner.Format("docker", s.Args)
		}
		lines = append(lines, fmt.Sprintf("• %s %s", s.Description, ui.Muted("("+cmd+")")))
	}
	return lines
}

func (c *Cleaner) printLastCleanup() {
	st := state.LoadState(c.Config.StatePath())
	last, ok := st.LastCleanup()
	if !ok {
		logger.Info("[INFO] No cleanup recorded for this project yet\n")
		return
	}
	logger.Info("[INFO] Last cleanup: %s on %s (%d failed steps)\n",
		last.Level, last.At.Local().Format("2006-01-02 15:04:05"), last.Failed)
}
