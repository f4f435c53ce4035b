package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPass   = lipgloss.Color("2")
	colorWarn   = lipgloss.Color("3")
	colorFail   = lipgloss.Color("1")
	colorAccent = lipgloss.Color("6")
)

// palette renders status labels for one output stream. Colors are dropped
// when the stream is not a terminal.
type palette struct {
	ok     lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	accent lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		ok:     r.NewStyle().Foreground(colorPass).Bold(true),
		warn:   r.NewStyle().Foreground(colorWarn).Bold(true),
		fail:   r.NewStyle().Foreground(colorFail).Bold(true),
		accent: r.NewStyle().Foreground(colorAccent),
	}
}
