package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

const statusLabelWidth = 22

func (k statusKind) badge() string {
	switch k {
	case statusOK:
		return "[OK]"
	case statusWarn:
		return "[WARN]"
	default:
		return "[FAIL]"
	}
}

func (k statusKind) color() text.Color {
	switch k {
	case statusOK:
		return text.FgGreen
	case statusWarn:
		return text.FgYellow
	default:
		return text.FgRed
	}
}

// statusReport prints titled sections of "  label: [KIND] message" lines.
type statusReport struct {
	w        io.Writer
	colorize bool
	sections int
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{w: w, colorize: shouldColorize(w)}
}

func (r *statusReport) section(title string) {
	if r.sections > 0 {
		fmt.Fprintln(r.w)
	}
	r.sections++
	if r.colorize {
		title = text.FgCyan.Sprint(title)
	}
	fmt.Fprintln(r.w, title)
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	fmt.Fprintln(r.w, formatStatusLine(label, kind, message, r.colorize))
}

func formatStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge := kind.badge()
	if colorize {
		badge = kind.color().Sprint(badge)
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge)
	if message != "" {
		line += " " + message
	}
	return line
}

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
