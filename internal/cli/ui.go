package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/packforge/pkg/errors"
)

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // labels
	colorDim    = lipgloss.Color("240") // muted
)

var (
	// StyleTitle for headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for completed operations.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warnings and skipped items.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleLabel       = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
)

// status is a one-character marker in front of a status line.
type status struct {
	icon  string
	style lipgloss.Style
}

var (
	statusSuccess = status{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	statusError   = status{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	statusWarning = status{"!", lipgloss.NewStyle().Foreground(colorYellow)}
	statusInfo    = status{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

// printer writes human-readable command output. Commands build one from
// cmd.OutOrStdout() so output can be captured in tests.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) printer { return printer{w: w} }

func (p printer) line(s status, msg string) {
	fmt.Fprintln(p.w, s.style.Render(s.icon)+" "+msg)
}

func (p printer) success(format string, args ...any) {
	p.line(statusSuccess, fmt.Sprintf(format, args...))
}

func (p printer) error(format string, args ...any) {
	p.line(statusError, fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	p.line(statusWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	p.line(statusInfo, fmt.Sprintf(format, args...))
}

// detail prints an indented, muted line.
func (p printer) detail(format string, args ...any) {
	fmt.Fprintln(p.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (p printer) file(path string) {
	fmt.Fprintln(p.w, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func (p printer) keyValue(key, value string) {
	fmt.Fprintln(p.w, styleLabel.Render(key)+" "+StyleValue.Render(value))
}

// stats prints pack and diagnostic counts plus whether the selection came
// from the cache, on one line.
func (p printer) stats(packs, diagnostics int, cached bool) {
	parts := []string{StyleDim.Render(pluralPacks(packs))}
	if diagnostics > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d diagnostics", diagnostics)))
	}
	if cached {
		parts = append(parts, StyleSuccess.Render("cached"))
	} else {
		parts = append(parts, StyleDim.Render("fresh"))
	}
	fmt.Fprintln(p.w, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// diagnostics prints one line per diagnostic, marked by severity.
func (p printer) diagnostics(diags errors.Diagnostics) {
	for _, d := range diags {
		code := StyleDim.Render(string(d.Code))
		if d.Severity == errors.SeverityError {
			p.line(statusError, code+" "+d.Message)
			continue
		}
		p.line(statusWarning, code+" "+StyleWarning.Render(d.Message))
	}
}

func (p printer) nextStep(description, cmd string) {
	fmt.Fprintln(p.w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}
