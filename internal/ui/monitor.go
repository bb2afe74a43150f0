package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/custody"
	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/quote"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
	"github.com/rovshanmuradov/curve-engine/internal/ui/component"
	"github.com/rovshanmuradov/curve-engine/internal/ui/style"
)

const (
	lamportsPerSol = 1_000_000_000

	DefaultTradeSize uint64 = lamportsPerSol / 10
	minTradeSize     uint64 = lamportsPerSol / 1000
	maxTradeSize     uint64 = 1000 * lamportsPerSol

	advanceSlots  = 50
	journalLength = 8
	sparkWidth    = 40
	gaugeWidth    = 40
)

// Deps are the engine parts the monitor drives.
type Deps struct {
	Program *settlement.Program
	Quotes  *quote.Service
	Ledger  *custody.Ledger
	Clock   settlement.Clock
	// Feed may be nil; the monitor then only refreshes after its own actions.
	Feed *Feed
	// Trader buys, sells and launches curves from the keyboard.
	Trader solana.PublicKey
	// Advance moves the settlement clock; nil disables the key.
	Advance func(seconds int64)
}

// Model is the bubbletea model of the curve monitor.
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model

	curves   []settlement.CurveInfo
	selected int
	size     uint64
	launched int

	sparks  map[solana.PublicKey]*component.Sparkline
	gauge   *component.ProgressGauge
	preview *quote.Quote
	// previewErr is shown instead of the preview, e.g. for a complete curve.
	previewErr error

	journal []string
	status  string
	failed  bool
	width   int
}

// NewModel creates the monitor.
func NewModel(deps Deps) *Model {
	if deps.Clock == nil {
		deps.Clock = settlement.SystemClock
	}
	m := &Model{
		deps:   deps,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		size:   DefaultTradeSize,
		sparks: make(map[solana.PublicKey]*component.Sparkline),
		gauge:  component.NewProgressGauge(gaugeWidth),
	}
	m.refresh()
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.quoteCmd()}
	if m.deps.Feed != nil {
		cmds = append(cmds, m.deps.Feed.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case EventMsg:
		m.handleEvent(msg.Event)
		m.refresh()
		cmds := []tea.Cmd{m.quoteCmd()}
		if m.deps.Feed != nil {
			cmds = append(cmds, m.deps.Feed.Listen())
		}
		return m, tea.Batch(cmds...)

	case TradeDoneMsg:
		side := "Sell"
		if msg.IsBuy {
			side = "Buy"
		}
		if msg.Err != nil {
			m.setStatus(true, "%s failed: %v", side, msg.Err)
		} else {
			m.setStatus(false, "%s settled: %s SOL / %s tokens, fee %s SOL",
				side, formatSol(msg.Result.SolAmount), formatTokens(msg.Result.TokenAmount), formatSol(msg.Result.FeeLamports))
		}
		m.refresh()
		return m, m.quoteCmd()

	case LaunchDoneMsg:
		if msg.Err != nil {
			m.setStatus(true, "Launch failed: %v", msg.Err)
			return m, nil
		}
		m.refresh()
		for i, c := range m.curves {
			if c.State.Mint.Equals(msg.Result.Mint) {
				m.selected = i
			}
		}
		m.setStatus(false, "Launched %s", msg.Result.Mint)
		return m, m.quoteCmd()

	case QuoteMsg:
		m.preview, m.previewErr = msg.Quote, msg.Err
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.NextCurve):
		if len(m.curves) > 0 {
			m.selected = (m.selected + 1) % len(m.curves)
		}
		return m.quoteCmd()

	case key.Matches(msg, m.keys.PrevCurve):
		if len(m.curves) > 0 {
			m.selected = (m.selected + len(m.curves) - 1) % len(m.curves)
		}
		return m.quoteCmd()

	case key.Matches(msg, m.keys.SizeUp):
		m.size = min(m.size*2, maxTradeSize)
		return m.quoteCmd()

	case key.Matches(msg, m.keys.SizeDown):
		m.size = max(m.size/2, minTradeSize)
		return m.quoteCmd()

	case key.Matches(msg, m.keys.Advance):
		if m.deps.Advance == nil {
			return nil
		}
		m.deps.Advance(advanceSlots * curve.SlotDuration)
		m.setStatus(false, "Clock advanced by %d slots", advanceSlots)
		return m.quoteCmd()

	case key.Matches(msg, m.keys.Buy):
		return m.swapCmd(true)

	case key.Matches(msg, m.keys.Sell):
		return m.swapCmd(false)

	case key.Matches(msg, m.keys.Launch):
		return m.launchCmd()
	}
	return nil
}

func (m *Model) handleEvent(e events.Event) {
	var line string
	switch ev := e.(type) {
	case *events.CurveCreatedEvent:
		line = fmt.Sprintf("launch %s %s", ev.Symbol, shortKey(ev.Mint))
	case *events.TradeEvent:
		side := style.SellStyle.Render("SELL")
		if ev.IsBuy {
			side = style.BuyStyle.Render("BUY ")
		}
		line = fmt.Sprintf("%s %s %s SOL / %s tok", side, shortKey(ev.Mint), formatSol(ev.SolAmount), formatTokens(ev.TokenAmount))
		m.spark(ev.Mint).Push(quote.SpotPrice(&curve.BondingCurve{
			VirtualSolReserves:   ev.VirtualSolReserves,
			VirtualTokenReserves: ev.VirtualTokenReserves,
		}))
	case *events.TradeRejectedEvent:
		line = style.ErrorStyle.Render(fmt.Sprintf("rejected %s: %v", shortKey(ev.Mint), ev.Error))
	case *events.CurveCompletedEvent:
		line = fmt.Sprintf("graduated %s at %s SOL", shortKey(ev.Mint), formatSol(ev.RealSolReserves))
	case *events.GlobalUpdatedEvent:
		line = "settings updated, status " + ev.Status
	default:
		return
	}

	m.journal = append(m.journal, line)
	if len(m.journal) > journalLength {
		m.journal = m.journal[len(m.journal)-journalLength:]
	}
}

func (m *Model) refresh() {
	m.curves = m.deps.Program.Curves()
	if m.selected >= len(m.curves) {
		m.selected = max(len(m.curves)-1, 0)
	}
	for _, c := range m.curves {
		s := m.spark(c.State.Mint)
		if s.Len() == 0 {
			s.Push(quote.SpotPrice(&c.State))
		}
	}
}

func (m *Model) spark(mint solana.PublicKey) *component.Sparkline {
	s, ok := m.sparks[mint]
	if !ok {
		s = component.NewSparkline(sparkWidth)
		m.sparks[mint] = s
	}
	return s
}

func (m *Model) current() (settlement.CurveInfo, bool) {
	if len(m.curves) == 0 {
		return settlement.CurveInfo{}, false
	}
	return m.curves[m.selected], true
}

func (m *Model) setStatus(failed bool, format string, args ...interface{}) {
	m.failed = failed
	m.status = fmt.Sprintf(format, args...)
}

func (m *Model) quoteCmd() tea.Cmd {
	info, ok := m.current()
	if !ok {
		return nil
	}
	mint, size, quotes := info.State.Mint, m.size, m.deps.Quotes
	return func() tea.Msg {
		q, err := quotes.QuoteBuy(mint, size, 0)
		return QuoteMsg{Quote: q, Err: err}
	}
}

// swapCmd buys with the current size, or sells half of the trader's
// balance of the selected curve.
func (m *Model) swapCmd(isBuy bool) tea.Cmd {
	info, ok := m.current()
	if !ok {
		m.setStatus(true, "No curve selected")
		return nil
	}
	params := settlement.SwapParams{
		Mint:          info.State.Mint,
		User:          m.deps.Trader,
		BaseIn:        !isBuy,
		ExactInAmount: m.size,
	}
	if !isBuy {
		balance, err := m.deps.Ledger.TokenBalance(m.deps.Trader, info.State.Mint)
		if err != nil {
			m.setStatus(true, "Balance unavailable: %v", err)
			return nil
		}
		params.ExactInAmount = max(balance/2, min(balance, 1))
	}

	program := m.deps.Program
	return func() tea.Msg {
		res, err := program.Swap(context.Background(), params)
		return TradeDoneMsg{IsBuy: isBuy, Result: res, Err: err}
	}
}

func (m *Model) launchCmd() tea.Cmd {
	m.launched++
	params := settlement.CreateParams{
		Creator:     m.deps.Trader,
		Name:        fmt.Sprintf("Curve %d", m.launched),
		Symbol:      fmt.Sprintf("CRV%d", m.launched),
		Whitelisted: true,
	}
	program := m.deps.Program
	return func() tea.Msg {
		res, err := program.CreateCurve(context.Background(), params)
		return LaunchDoneMsg{Result: res, Err: err}
	}
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("◆ curve monitor"))
	b.WriteString("\n\n")

	b.WriteString(m.curveList())
	b.WriteString("\n")

	if info, ok := m.current(); ok {
		b.WriteString(style.ActivePanelStyle.Render(m.curvePanel(info)))
		b.WriteString("\n")
	}

	if len(m.journal) > 0 {
		b.WriteString(style.PanelStyle.Render(strings.Join(m.journal, "\n")))
		b.WriteString("\n")
	}

	if m.status != "" {
		s := style.ValueStyle
		if m.failed {
			s = style.ErrorStyle
		}
		b.WriteString(s.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) curveList() string {
	if len(m.curves) == 0 {
		return style.MutedStyle.Render("No curves yet, press n to launch one.") + "\n"
	}
	var b strings.Builder
	for i, c := range m.curves {
		cursor := "  "
		if i == m.selected {
			cursor = "▸ "
		}
		state := "live"
		if c.State.Complete {
			state = "complete"
		}
		fmt.Fprintf(&b, "%s%-8s %s  %s\n", cursor, c.Symbol, shortKey(c.State.Mint), style.MutedStyle.Render(state))
	}
	return b.String()
}

func (m *Model) curvePanel(info settlement.CurveInfo) string {
	palette := style.DefaultPalette()
	c := &info.State
	now := m.deps.Clock()

	rows := []string{
		style.Row("Curve", fmt.Sprintf("%s (%s)", info.Name, info.Symbol)),
		style.Row("Mint", c.Mint.String()),
		style.Row("Spot price", fmt.Sprintf("%.10f SOL", quote.SpotPrice(c))),
		style.Row("Market cap", fmt.Sprintf("%.2f SOL", quote.MarketCap(c))),
		style.Row("Virtual SOL", formatSol(c.VirtualSolReserves)),
		style.Row("Virtual tokens", formatTokens(c.VirtualTokenReserves)),
		style.Row("Real SOL", formatSol(c.RealSolReserves)),
		style.Row("Real tokens", formatTokens(c.RealTokenReserves)),
	}

	if bps, phase, err := curve.FeeBasisPoints(c.StartTime, now); err == nil {
		fee := lipgloss.NewStyle().Foreground(palette.PhaseColor(phase)).Bold(true).
			Render(fmt.Sprintf("%d.%02d%% (%s)", bps/100, bps%100, phase))
		rows = append(rows, style.Row("Fee", fee))
	}

	m.gauge.Set(quote.Progress(c, info.InitialRealTokenReserves), c.Complete)
	rows = append(rows,
		style.Row("Progress", m.gauge.View()),
		style.Row("Price", m.spark(c.Mint).View()),
		"",
		style.Row("Trade size", formatSol(m.size)+" SOL"),
	)

	switch {
	case m.previewErr != nil:
		rows = append(rows, style.Row("Preview", style.ErrorStyle.Render(m.previewErr.Error())))
	case m.preview != nil && m.preview.Mint.Equals(c.Mint):
		p := m.preview
		preview := fmt.Sprintf("%s tokens, fee %s SOL, impact %.2f%%", formatTokens(p.AmountOut), formatSol(p.FeeLamports), p.PriceImpactPct)
		if p.Graduates {
			preview += " (graduates)"
		}
		rows = append(rows, style.Row("Preview", preview))
	}

	if m.deps.Ledger != nil {
		balance, err := m.deps.Ledger.TokenBalance(m.deps.Trader, c.Mint)
		if err == nil {
			rows = append(rows, style.Row("Wallet", fmt.Sprintf("%s SOL, %s tokens",
				formatSol(m.deps.Ledger.Lamports(m.deps.Trader)), formatTokens(balance))))
		}
	}

	return strings.Join(rows, "\n")
}

func formatSol(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/lamportsPerSol, lamports%lamportsPerSol)
}

func formatTokens(amount uint64) string {
	return fmt.Sprintf("%d.%06d", amount/1_000_000, amount%1_000_000)
}

func shortKey(k solana.PublicKey) string {
	s := k.String()
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}
