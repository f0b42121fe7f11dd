package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	sessionStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	sessionClosedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Faint(true)
	attachedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true)
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	coordinatorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	stepStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	phaseStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("108")).Bold(true)
	metaStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)
