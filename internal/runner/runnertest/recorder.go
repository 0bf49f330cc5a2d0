// Package runnertest provides a Runner that records commands instead of
// executing them.
package runnertest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"railsdock/internal/runner"
)

// Call is one recorded invocation.
type Call struct {
	Name  string
	Args  []string
	Stdin string
}

// Line renders the call as a single command line.
func (c Call) Line() string { return runner.Format(c.Name, c.Args) }

// Recorder implements runner.Runner. Responses and failures are matched by
// command-line prefix, longest match wins.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// Outputs maps a command-line prefix to the stdout it produces.
	Outputs map[string]string
	// Failures maps a command-line prefix to the exit code it fails with.
	Failures map[string]int
	// Missing lists binaries LookPath does not find.
	Missing map[string]bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		Outputs:  map[string]string{},
		Failures: map[string]int{},
		Missing:  map[string]bool{},
	}
}

// Calls returns a copy of everything recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded command lines in order.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Line())
	}
	return out
}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.record(name, args, "")
	return err
}

func (r *Recorder) RunIO(ctx context.Context, stdin io.Reader, stdout io.Writer, name string, args ...string) error {
	var in string
	if stdin != nil {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		in = string(b)
	}
	out, err := r.record(name, args, in)
	if stdout != nil && out != "" {
		if _, werr := io.WriteString(stdout, out); werr != nil {
			return werr
		}
	}
	return err
}

func (r *Recorder) Output(ctx context.Context, name string, args ...string) (string, error) {
	return r.record(name, args, "")
}

func (r *Recorder) LookPath(name string) (string, error) {
	if r.Missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (r *Recorder) record(name string, args []string, stdin string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Call{Name: name, Args: append([]string(nil), args...), Stdin: stdin}
	r.calls = append(r.calls, c)
	line := c.Line()
	out := lookup(r.Outputs, line)
	if code, ok := lookupCode(r.Failures, line); ok {
		return out, &runner.ExitError{Command: line, Code: code}
	}
	return out, nil
}

func lookup(m map[string]string, line string) string {
	best, val := -1, ""
	for prefix, v := range m {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best, val = len(prefix), v
		}
	}
	return val
}

func lookupCode(m map[string]int, line string) (int, bool) {
	best, val := -1, 0
	for prefix, v := range m {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best, val = len(prefix), v
		}
	}
	return val, best >= 0
}
