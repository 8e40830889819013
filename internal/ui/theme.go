package ui

import "github.com/charmbracelet/lipgloss"

var (
	basketGreen = lipgloss.Color("#2E9E44")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(basketGreen).
			Padding(1, 2, 0, 2)

	HelpStyle = lipgloss.NewStyle().
			Padding(1, 2)
)
