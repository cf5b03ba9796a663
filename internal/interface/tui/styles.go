package tui

import "github.com/charmbracelet/lipgloss"

// Styles for the session picker
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")) // Lighter gray for dark terminals

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)
