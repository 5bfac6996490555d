// Package ui renders terminal output for the rsml command.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	enabled bool

	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// UseColor decides whether output to f is colorized for a --color value of
// auto, on or off. Auto colorizes terminals unless NO_COLOR is set.
func UseColor(mode string, f *os.File) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Setup selects the color profile used by the Render functions. With
// color off they return their input unchanged.
func Setup(color bool) {
	enabled = color
	if !color {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.EnvColorProfile()
	if profile == termenv.Ascii {
		profile = termenv.ANSI
	}
	lipgloss.SetColorProfile(profile)
}

// RenderAccent highlights headings and names.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderPass renders success output.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn renders warnings.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail renders errors.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderPath renders a file system path.
func RenderPath(s string) string { return render(pathStyle, s) }

func render(style lipgloss.Style, s string) string {
	if !enabled {
		return s
	}
	return style.Render(s)
}
