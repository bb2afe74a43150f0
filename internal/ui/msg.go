package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/quote"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
)

// EventMsg wraps a program event for the UI
type EventMsg struct {
	Event events.Event
}

// TradeDoneMsg is the result of a buy or sell started from the keyboard.
type TradeDoneMsg struct {
	IsBuy  bool
	Result *settlement.SwapResult
	Err    error
}

// LaunchDoneMsg is the result of a curve launch.
type LaunchDoneMsg struct {
	Result *settlement.CreateResult
	Err    error
}

// QuoteMsg carries the preview for the selected curve.
type QuoteMsg struct {
	Quote *quote.Quote
	Err   error
}

// Feed forwards bus events into the tea loop.
type Feed struct {
	ch   chan tea.Msg
	subs []events.Subscription
}

// NewFeed subscribes to every program event on bus.
func NewFeed(bus *events.Bus, size int) *Feed {
	f := &Feed{ch: make(chan tea.Msg, size)}
	forward := func(_ context.Context, e events.Event) error {
		select {
		case f.ch <- EventMsg{Event: e}:
		default:
			// UI не успевает, событие отбрасывается
		}
		return nil
	}
	for _, t := range []events.EventType{
		events.CurveCreated,
		events.TradeExecuted,
		events.TradeRejected,
		events.CurveCompleted,
		events.GlobalUpdated,
	} {
		f.subs = append(f.subs, bus.SubscribeFunc(t, forward))
	}
	return f
}

// Listen returns a tea.Cmd that waits for the next event
func (f *Feed) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}

// Close unsubscribes from the bus.
func (f *Feed) Close() error {
	for _, s := range f.subs {
		s.Unsubscribe()
	}
	f.subs = nil
	return nil
}
