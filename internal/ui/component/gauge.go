package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-engine/internal/ui/style"
)

// ProgressGauge shows how much of the sellable supply has been bought.
type ProgressGauge struct {
	bps      uint64
	width    int
	complete bool
}

// NewProgressGauge creates a gauge width cells wide.
func NewProgressGauge(width int) *ProgressGauge {
	return &ProgressGauge{width: width}
}

// Set updates the gauge. bps is capped at 10000.
func (g *ProgressGauge) Set(bps uint64, complete bool) *ProgressGauge {
	g.bps = min(bps, 10_000)
	g.complete = complete
	return g
}

// View renders the gauge
func (g *ProgressGauge) View() string {
	palette := style.DefaultPalette()
	if g.width <= 0 {
		return ""
	}

	filled := int(g.bps) * g.width / 10_000
	if g.complete {
		filled = g.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", g.width-filled)

	color := palette.Primary
	label := fmt.Sprintf("%d.%02d%%", g.bps/100, g.bps%100)
	if g.complete {
		color = palette.Graduated
		label = "graduated"
	}

	return lipgloss.NewStyle().Foreground(color).Render(bar) + " " +
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(label)
}
