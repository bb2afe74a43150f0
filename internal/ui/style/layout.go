package style

import (
	"github.com/charmbracelet/lipgloss"
)

var palette = DefaultPalette()

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 2)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true)

	BuyStyle = lipgloss.NewStyle().
			Foreground(palette.Buy).
			Bold(true)

	SellStyle = lipgloss.NewStyle().
			Foreground(palette.Sell).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(palette.Error)

	MutedStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted)
)

// Row renders a "label value" line.
func Row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), ValueStyle.Render(value))
}
