package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Clark-Hu/movie-directory/internal/browse"
)

var styles = newPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
}

func newPalette(t, s, e, w, h string) *palette {
	return &palette{
		title: newBold(t).MarginBottom(1),
		ok:    newBold(s),
		err:   newBold(e),
		warn:  newStyle(w),
		help:  newEm(h),
		label: newStyle(t).Width(10),
	}
}

func newStyle(fg string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(fg)) }
func newBold(fg string) lipgloss.Style  { return newStyle(fg).Bold(true) }
func newEm(fg string) lipgloss.Style    { return newStyle(fg).Italic(true) }

func renderNotification(n browse.Notification) string {
	if !n.Open {
		return ""
	}
	if n.Severity == browse.SeverityError {
		return styles.err.Render("✗ " + n.Message)
	}
	return styles.ok.Render("✓ " + n.Message)
}
