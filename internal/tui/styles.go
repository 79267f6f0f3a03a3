package tui

import "github.com/charmbracelet/lipgloss"

const timelineWidth = 48

var (
	accent = lipgloss.Color("#E91E63")
	muted  = lipgloss.Color("#9E8AAB")
	good   = lipgloss.Color("#43A047")
	bad    = lipgloss.Color("#E53935")
	locked = lipgloss.Color("#3A2A4A")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent)
	subtitleStyle  = lipgloss.NewStyle().Foreground(muted)
	slotStyle      = lipgloss.NewStyle().Width(40).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(locked)
	correctStyle   = slotStyle.BorderForeground(good).Foreground(good)
	incorrectStyle = slotStyle.BorderForeground(bad).Foreground(bad)
	skippedStyle   = slotStyle.Foreground(muted)
	playedStyle    = lipgloss.NewStyle().Foreground(accent)
	unlockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5E6FF"))
	lockedStyle    = lipgloss.NewStyle().Foreground(locked)
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(accent).Padding(0, 1).Width(40)
	selectedStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	statusStyles   = map[string]lipgloss.Style{
		"correct":       lipgloss.NewStyle().Foreground(good),
		"incorrect":     lipgloss.NewStyle().Foreground(bad),
		"game_over":     lipgloss.NewStyle().Foreground(bad),
		"record_failed": lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB300")),
	}
	resultStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(accent).Padding(1, 2).Width(40)
	errorStyle  = lipgloss.NewStyle().Foreground(bad).Bold(true)
)
