// Package output provides consistent CLI output formatting with colors and progress indicators.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiBold   = "\033[1m"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	tty      bool
	useColor bool
}

// New creates a new output Writer. Color and progress bars are enabled
// when out is a terminal and NO_COLOR is not set.
func New(out io.Writer) *Writer {
	tty := IsTerminal(out)
	return &Writer{
		out:      out,
		tty:      tty,
		useColor: tty && !NoColor(),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NoColor reports whether the NO_COLOR environment variable is set.
func NoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Color reports whether the writer emits ANSI colors.
func (w *Writer) Color() bool {
	return w.useColor
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.paint(ansiGreen, "✓"), msg)
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.paint(ansiYellow, "!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.paint(ansiRed, "✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Line prints msg as is.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Bold returns s in bold when colors are enabled.
func (w *Writer) Bold(s string) string {
	return w.paint(ansiBold, s)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

func (w *Writer) paint(code, s string) string {
	if !w.useColor {
		return s
	}
	return code + s + ansiReset
}

// Progress tracks a long-running operation. It draws a bar on terminals
// and does nothing otherwise.
type Progress struct {
	bar *progressbar.ProgressBar
}

// Progress starts a progress indicator with total steps. A negative total
// draws a spinner.
func (w *Writer) Progress(total int, desc string) *Progress {
	if !w.tty {
		return &Progress{}
	}
	return &Progress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w.out),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionEnableColorCodes(w.useColor),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w.out)
		}),
	)}
}

// Step advances the indicator by one and updates its description.
func (p *Progress) Step(desc string) {
	if p.bar == nil {
		return
	}
	if desc != "" {
		p.bar.Describe(desc)
	}
	_ = p.bar.Add(1)
}

// Done completes the indicator.
func (p *Progress) Done() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
