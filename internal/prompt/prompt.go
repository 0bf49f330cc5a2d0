// Package prompt asks the user to confirm destructive operations.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter is the only safeguard between a command and data loss.
type Prompter interface {
	// Confirm asks a y/N question. Anything but y/yes is a no.
	Confirm(ctx context.Context, question string) (bool, error)
	// ConfirmPhrase requires the user to type phrase exactly (case-sensitive).
	ConfirmPhrase(ctx context.Context, question, phrase string) (bool, error)
	// Choose asks the user to pick one of options by number or by name.
	Choose(ctx context.Context, question string, options []string) (string, error)
}

// ErrNoChoice is returned by Choose when the input matches no option.
var ErrNoChoice = errors.New("no valid option selected")

// Interactive reads answers line by line from an input stream.
type Interactive struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractive returns a Prompter reading from in and writing questions to out.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewReader(in), out: out}
}

func (p *Interactive) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.readLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (p *Interactive) ConfirmPhrase(ctx context.Context, question, phrase string) (bool, error) {
	fmt.Fprintf(p.out, "%s\nType '%s' to continue: ", question, phrase)
	line, err := p.readLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return line == phrase, nil
}

func (p *Interactive) Choose(ctx context.Context, question string, options []string) (string, error) {
	fmt.Fprintln(p.out, question)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	fmt.Fprint(p.out, "Choice: ")
	line, err := p.readLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrNoChoice
		}
		return "", err
	}
	answer := strings.TrimSpace(line)
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], nil
	}
	for _, o := range options {
		if strings.EqualFold(o, answer) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoChoice, answer)
}

// readLine returns one line without its terminator. The read happens in a
// goroutine so a cancelled context unblocks the caller.
func (p *Interactive) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil && line != "" && errors.Is(err, io.EOF) {
			// last line without a newline still counts as an answer
			err = nil
		}
		ch <- result{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

// AutoApprove answers yes to every y/N question (--yes). Typed phrases are
// never auto-approved and go to Next.
type AutoApprove struct {
	Next Prompter
}

func (a AutoApprove) Confirm(ctx context.Context, question string) (bool, error) {
	return true, nil
}

func (a AutoApprove) ConfirmPhrase(ctx context.Context, question, phrase string) (bool, error) {
	return a.Next.ConfirmPhrase(ctx, question, phrase)
}

func (a AutoApprove) Choose(ctx context.Context, question string, options []string) (string, error) {
	return a.Next.Choose(ctx, question, options)
}
