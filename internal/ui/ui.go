// Package ui renders the boxed summaries and menus railsdock prints.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

var (
	colorAccent  = lipgloss.Color("#CC0000") // rails red
	colorWarning = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#7F8C8D")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	keyStyle   = lipgloss.NewStyle().Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
	warningBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWarning).
			Padding(0, 1)
)

// DisableColor renders every style without ANSI sequences. Borders and
// padding are kept.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Box renders title and lines inside a rounded border.
func Box(title string, lines ...string) string {
	return boxStyle.Render(titleStyle.Render(title) + "\n\n" + strings.Join(lines, "\n"))
}

// WarningBox is Box with the warning border, used before destructive steps.
func WarningBox(title string, lines ...string) string {
	return warningBoxStyle.Render(titleStyle.Render(title) + "\n\n" + strings.Join(lines, "\n"))
}

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// KeyValue renders aligned "key  value" rows.
func KeyValue(rows [][2]string) []string {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, keyStyle.Render(fmt.Sprintf("%-*s", width, r[0]))+"  "+r[1])
	}
	return out
}

// HumanSize formats a byte count the way `ls -lh` does.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}

// Table renders rows under a bold header inside a rounded border.
func Table(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := keyStyle.Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Render()
}

// Age renders a duration coarsely: "5m", "3h", "12d".
func Age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
}
