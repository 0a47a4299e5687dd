// Package ui provides terminal output for the logisplit CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	out         io.Writer = os.Stdout
	errOut      io.Writer = os.Stderr
	verboseFlag bool
)

// InitUI applies the color and verbosity settings
func InitUI(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor || !IsTerminal() {
		color.NoColor = true
	}
}

// SetOutput redirects normal and error output. nil restores the default.
func SetOutput(stdout, stderr io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	out = stdout
	errOut = stderr
}

// Verbose reports whether verbose output was requested
func Verbose() bool {
	return verboseFlag
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Success prints a success message.
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message to stderr.
func Error(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message.
func Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step prints a step message.
func Step(format string, args ...interface{}) {
	color.New(color.FgBlue).Fprintf(out, "→ %s\n", fmt.Sprintf(format, args...))
}

// Line prints a plain line.
func Line(format string, args ...interface{}) {
	fmt.Fprintf(out, format+"\n", args...)
}

// KeyValue prints a key-value pair.
func KeyValue(key string, value interface{}) {
	color.New(color.FgYellow).Fprintf(out, "  %s: ", key)
	fmt.Fprintf(out, "%v\n", value)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// FormatBytes formats bytes in a human-readable way.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
