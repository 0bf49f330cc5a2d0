// Package runner executes host commands (docker, docker-compose) on behalf of
// every railsdock operation.
//
// All process execution goes through the Runner interface so that commands can
// be printed instead of executed (--dry-run) and recorded in tests.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"railsdock/internal/logger"
)

// Runner runs external commands. Every call blocks until the process exits.
type Runner interface {
	// Run executes name with the terminal's stdin/stdout/stderr attached.
	Run(ctx context.Context, name string, args ...string) error
	// RunIO executes name with explicit stdin and stdout; stderr stays on the terminal.
	RunIO(ctx context.Context, stdin io.Reader, stdout io.Writer, name string, args ...string) error
	// Output executes name and returns its captured stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// LookPath reports where name resolves on PATH.
	LookPath(name string) (string, error)
}

// ExitError is returned when a wrapped command exits non-zero. Code is the
// exit status railsdock itself exits with.
type ExitError struct {
	Command string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the process exit code carried by err, or 1 when err is
// not an ExitError.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) && ee.Code != 0 {
		return ee.Code
	}
	return 1
}

// Exec is the os/exec backed Runner.
type Exec struct {
	// DryRun prints commands to Stderr instead of running them.
	DryRun bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New returns an Exec runner wired to the process stdio.
func New(dryRun bool) *Exec {
	return &Exec{DryRun: dryRun, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) error {
	return e.RunIO(ctx, e.Stdin, e.Stdout, name, args...)
}

func (e *Exec) RunIO(ctx context.Context, stdin io.Reader, stdout io.Writer, name string, args ...string) error {
	if e.echo(name, args) {
		return nil
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = e.Stderr
	return wrap(ctx, name, args, cmd.Run())
}

func (e *Exec) Output(ctx context.Context, name string, args ...string) (string, error) {
	if e.echo(name, args) {
		return "", nil
	}
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	if err != nil {
		logger.Debug("[DEBUG] %s output: %s\n", Format(name, args), buf.String())
	}
	return buf.String(), wrap(ctx, name, args, err)
}

func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// echo prints the command and reports whether execution should be skipped.
func (e *Exec) echo(name string, args []string) bool {
	line := Format(name, args)
	if e.DryRun {
		fmt.Fprintln(e.Stderr, "+ "+line)
		return true
	}
	logger.Debug("[DEBUG] Running command: %s\n", line)
	return false
}

func wrap(ctx context.Context, name string, args []string, err error) error {
	if err == nil {
		return nil
	}
	code := 1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		// -1 means killed by a signal
		if code = ee.ExitCode(); code < 0 {
			code = 1
		}
	} else if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code = 124
	}
	return &ExitError{Command: Format(name, args), Code: code, Err: err}
}

// Format renders a command line the way it is echoed in dry-run mode.
func Format(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
