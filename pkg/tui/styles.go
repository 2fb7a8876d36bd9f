package tui

import "github.com/charmbracelet/lipgloss"

var (
	special = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99"))
	subtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	danger  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055"))
	title   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CCFF"))
)
