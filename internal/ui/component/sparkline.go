package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-engine/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a mini chart of the last width spot prices.
type Sparkline struct {
	data  []float64
	width int
	color lipgloss.Color
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		width: width,
		color: style.DefaultPalette().Primary,
	}
}

// Push adds a price, dropping the oldest once the chart is full.
func (s *Sparkline) Push(value float64) *Sparkline {
	s.data = append(s.data, value)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// Len returns the number of points held.
func (s *Sparkline) Len() int {
	return len(s.data)
}

// Reset removes all data points
func (s *Sparkline) Reset() *Sparkline {
	s.data = s.data[:0]
	return s
}

// View renders the sparkline
func (s *Sparkline) View() string {
	if len(s.data) == 0 {
		return style.MutedStyle.Render(strings.Repeat("▁", s.width))
	}

	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := len(sparkChars) / 2
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[idx])
	}
	for i := len(s.data); i < s.width; i++ {
		b.WriteRune(' ')
	}

	return lipgloss.NewStyle().Foreground(s.color).Render(b.String()) + " " + s.trend()
}

func (s *Sparkline) trend() string {
	palette := style.DefaultPalette()
	if len(s.data) < 2 {
		return lipgloss.NewStyle().Foreground(palette.TextMuted).Render("→")
	}
	prev, last := s.data[len(s.data)-2], s.data[len(s.data)-1]
	switch {
	case last > prev:
		return lipgloss.NewStyle().Foreground(palette.Buy).Render("↗")
	case last < prev:
		return lipgloss.NewStyle().Foreground(palette.Sell).Render("↘")
	default:
		return lipgloss.NewStyle().Foreground(palette.TextMuted).Render("→")
	}
}
