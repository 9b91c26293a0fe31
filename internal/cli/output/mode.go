// Package output renders command results for terminals, markdown consumers
// and scripts.
package output

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Resolve turns ModeAuto into text on a terminal and markdown otherwise.
func (m Mode) Resolve(tty bool) Mode {
	switch m {
	case ModeText, ModeMarkdown, ModeJSON:
		return m
	default:
		if tty {
			return ModeText
		}
		return ModeMarkdown
	}
}
