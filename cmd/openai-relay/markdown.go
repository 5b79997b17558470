package main

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/picatz/openai-relay/internal/logger"
	"golang.org/x/term"
)

const defaultWidth = 80

// termWidth returns the width of stdout, or a default when stdout is not a
// terminal.
func termWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// renderMarkdown renders s for the terminal. Rendering problems fall back
// to the plain text.
func renderMarkdown(s string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		slogger.Debug("failed to create markdown renderer", logger.Err(err))
		return s
	}

	out, err := r.Render(s)
	if err != nil {
		slogger.Debug("failed to render markdown", logger.Err(err))
		return s
	}

	return out
}
