package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})

	paragraphStyle = lipgloss.NewStyle().
			Margin(0, 0, 0, 2)
)

// keyword renders a highlighted word for help and status text.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph renders body text indented and wrapped to the terminal.
func paragraph(s string) string {
	return paragraphStyle.Width(terminalWidth()).Render(s)
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || w > 80 {
		return 80
	}
	return w
}
