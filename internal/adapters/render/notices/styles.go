package notices

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title        lipgloss.Style
	header       lipgloss.Style
	paymentBadge lipgloss.Style
	visitBadge   lipgloss.Style
	message      lipgloss.Style
	meta         lipgloss.Style
	section      lipgloss.Style
	empty        lipgloss.Style
	spinner      lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:        lipgloss.NewStyle().Bold(true),
		header:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		paymentBadge: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		visitBadge:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		message:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		meta:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		section:      lipgloss.NewStyle().MarginTop(1),
		empty:        lipgloss.NewStyle().Faint(true),
		spinner:      lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
	}
}
