package logger

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Define colorized printing functions for different log levels using fatih/color.
// These are package-level variables holding functions that behave like fmt.Printf,
// but with text colored appropriately for the log level.
// They are rebuilt by SetOutput so tests can capture what a command prints.
var (
	// Info logs informational messages in green color.
	Info func(format string, a ...any)

	// Success logs the final line of a completed operation in bright green.
	Success func(format string, a ...any)

	// Step announces the next external command or phase in blue.
	Step func(format string, a ...any)

	// Warn logs warning messages in bright magenta color.
	// Warnings are used for best-effort steps that failed without stopping the run.
	Warn func(format string, a ...any)

	// Error logs error messages in red color.
	Error func(format string, a ...any)

	// Debug logs debug messages in cyan color if enabled, otherwise is a no-op.
	Debug func(format string, a ...any)
)

var (
	out          io.Writer = os.Stdout
	debugEnabled bool

	// writeMu serializes lines: color.Fprintf issues several writes per call.
	writeMu sync.Mutex
)

func init() {
	build()
}

// Init initializes the logger package, specifically enabling or disabling debug logging
// and colors. Colors are also disabled when stdout is not a terminal.
func Init(enableDebug, noColor bool) {
	debugEnabled = enableDebug
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	build()
}

// SetOutput redirects all log levels to w. A nil w restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	out = w
	build()
}

// Output returns the writer log lines currently go to.
func Output() io.Writer { return out }

// DebugEnabled reports whether --debug was given.
func DebugEnabled() bool { return debugEnabled }

func build() {
	Info = bind(color.New(color.FgGreen))
	Success = bind(color.New(color.FgHiGreen, color.Bold))
	Step = bind(color.New(color.FgBlue))
	Warn = bind(color.New(color.FgHiMagenta))
	Error = bind(color.New(color.FgRed))
	if debugEnabled {
		// Assign Debug to print cyan-colored debug messages.
		Debug = bind(color.New(color.FgCyan))
	} else {
		// Assign Debug to a no-op function that ignores all debug logs.
		Debug = func(format string, a ...any) {}
	}
}

// bind fixes the current output writer into a printf-style function.
func bind(c *color.Color) func(format string, a ...any) {
	w := out
	f := c.FprintfFunc()
	return func(format string, a ...any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		f(w, format, a...)
	}
}
