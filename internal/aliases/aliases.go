// Package aliases appends railsdock shortcuts to the user's shell rc file.
package aliases

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"railsdock/internal/config"
	"railsdock/internal/logger"
)

// Defaults are written when the config defines no aliases.
func Defaults() []config.Alias {
	return []config.Alias{
		{Name: "rd", Value: "railsdock"},
		{Name: "rdq", Value: "railsdock quick"},
		{Name: "rds", Value: "railsdock quick start"},
		{Name: "rdx", Value: "railsdock quick stop"},
		{Name: "rdl", Value: "railsdock quick logs"},
		{Name: "rdc", Value: "railsdock quick console"},
		{Name: "rdm", Value: "railsdock quick migrate"},
		{Name: "rdt", Value: "railsdock quick test"},
		{Name: "rdb", Value: "railsdock db backup"},
	}
}

var rcFiles = map[string]string{
	"zsh":  ".zshrc",
	"bash": ".bashrc",
}

// Options control where aliases are written.
// - Shell overrides the config and $SHELL.
// - Home overrides the user's home directory.
// - RCPath, when set, is used as is.
type Options struct {
	Shell  string
	Home   string
	RCPath string
}

// Result reports what Sync changed.
type Result struct {
	RCPath  string
	Added   []string
	Present int
}

// Line renders one alias definition.
func Line(a config.Alias) string {
	return fmt.Sprintf("alias %s=\"%s\"", a.Name, a.Value)
}

// Lines renders the configured aliases, falling back to Defaults.
func Lines(a config.Aliases) []string {
	entries := a.Entries
	if len(entries) == 0 {
		entries = Defaults()
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, Line(e))
	}
	return out
}

// Print writes the alias lines to w.
func Print(w io.Writer, a config.Aliases) error {
	for _, l := range Lines(a) {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// DetectShell maps $SHELL to zsh or bash, defaulting to zsh.
func DetectShell() string {
	shell := os.Getenv("SHELL")
	logger.Debug("[DEBUG] Detected shell environment: %s\n", shell)
	switch {
	case strings.Contains(shell, "zsh"):
		return "zsh"
	case strings.Contains(shell, "bash"):
		return "bash"
	}
	return "zsh"
}

// RCPath resolves the rc file for the chosen shell.
func RCPath(a config.Aliases, opts Options) (string, error) {
	if opts.RCPath != "" {
		return opts.RCPath, nil
	}
	shell := opts.Shell
	if shell == "" {
		shell = a.Shell
	}
	if shell == "" {
		shell = DetectShell()
	}
	logger.Debug("[DEBUG] Using shell '%s' for aliases\n", shell)

	rc, ok := rcFiles[shell]
	if !ok {
		logger.Warn("[WARN] Unknown shell '%s', defaulting to '.zshrc'\n", shell)
		rc = ".zshrc"
	}
	home := opts.Home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return "", fmt.Errorf("find home directory: %w", err)
		}
	}
	return filepath.Join(home, rc), nil
}

// Sync appends every alias line not already in the rc file.
func Sync(a config.Aliases, opts Options) (*Result, error) {
	path, err := RCPath(a, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{RCPath: path}

	existing := map[string]bool{}
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			existing[strings.TrimSpace(scanner.Text())] = true
		}
		_ = f.Close()
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var pending []string
	for _, l := range Lines(a) {
		if existing[l] {
			logger.Debug("[DEBUG] Alias already exists: %s\n", l)
			res.Present++
			continue
		}
		existing[l] = true
		pending = append(pending, l)
	}
	if len(pending) == 0 {
		logger.Info("[INFO] All aliases already present in %s\n", path)
		return res, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for appending: %w", path, err)
	}
	defer file.Close()

	for _, l := range pending {
		if _, err := file.WriteString(l + "\n"); err != nil {
			return res, fmt.Errorf("write alias %q: %w", l, err)
		}
		logger.Info("[INFO] Added alias: %s\n", l)
		res.Added = append(res.Added, l)
	}
	return res, nil
}
