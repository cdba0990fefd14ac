package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes human-facing output. Logs go elsewhere; this is what the
// user reads on stdout. A quiet printer only lets errors through.
type Printer struct {
	out   io.Writer
	quiet bool
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, quiet bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out, quiet: quiet}
}

var std = NewPrinter(os.Stdout, false)

// Default returns the stdout printer
func Default() *Printer {
	return std
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) println(s string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, s)
}

// Banner prints the run title
func (p *Printer) Banner(title string) {
	p.println(titleStyle.Render(title))
}

// PrintError prints an error message in red. Shown even when quiet.
func (p *Printer) PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(p.out, Red(msg))
}

// PrintSuccess prints a success message in green
func (p *Printer) PrintSuccess(msg string) {
	p.println(Green(msg))
}

// PrintInfo prints a label/value pair
func (p *Printer) PrintInfo(label string, value string) {
	p.println(fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message
func (p *Printer) PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	p.println(Orange(msg))
}

// PrintHighlight prints a highlighted message
func (p *Printer) PrintHighlight(msg string) {
	p.println(Magenta(msg))
}

// Field is one row of a summary panel
type Field struct {
	Label string
	Value string
}

// PrintPanel prints rows inside a bordered panel
func (p *Printer) PrintPanel(title string, fields []Field) {
	width := 0
	for _, f := range fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}

	rows := []string{titleStyle.Render(title)}
	for _, f := range fields {
		label := f.Label + ":" + strings.Repeat(" ", width-len(f.Label))
		rows = append(rows, Cyan(label)+" "+Yellow(f.Value))
	}

	p.println(panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

// Package-level helpers print through the stdout printer

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) { std.PrintError(msg, args...) }

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) { std.PrintSuccess(msg) }

// PrintInfo prints a label/value pair
func PrintInfo(label, value string) { std.PrintInfo(label, value) }

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) { std.PrintWarning(msg, args...) }
