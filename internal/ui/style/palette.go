package style

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
)

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")
	Purple  = lipgloss.Color("#8B5CF6")

	Base03 = lipgloss.Color("#1B1D23") // фон
	Base01 = lipgloss.Color("#6C7280") // приглушенный текст
	Base2  = lipgloss.Color("#ECEFF4") // основной текст
	Base1  = lipgloss.Color("#B4BCC8")
)

// Palette groups the colors the monitor uses.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Buy       lipgloss.Color
	Sell      lipgloss.Color
	Graduated lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Buy:       Green,
		Sell:      Red,
		Graduated: Purple,
	}
}

// PhaseColor colors the fee schedule: red while the launch fee applies,
// yellow during decay, green once the steady fee is reached.
func (p Palette) PhaseColor(phase curve.FeePhase) lipgloss.Color {
	switch phase {
	case curve.FeePhaseLaunch:
		return p.Error
	case curve.FeePhaseDecay:
		return p.Warning
	default:
		return p.Success
	}
}
