package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	// LabelStyle for the left column of a report row.
	LabelStyle = lipgloss.NewStyle().Width(22).Faint(true)

	// SectionStyle frames a report block.
	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginBottom(1)

	ProfitStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// GradeStyle highlights the worth-score grade.
	GradeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Reverse(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// FormatMoney formats an amount with a sign-dependent color.
func FormatMoney(v float64) string {
	s := fmt.Sprintf("%+.2f", v)

	switch {
	case v > 0:
		return ProfitStyle.Render(s)
	case v < 0:
		return LossStyle.Render(s)
	default:
		return s
	}
}
