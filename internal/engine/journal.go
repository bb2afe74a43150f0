// internal/engine/journal.go
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/utils/logger"
)

// subscribeJournal пишет события программы в журнал логов.
func subscribeJournal(bus *events.Bus, log *logger.Logger) []events.Subscription {
	journal := logger.Wrap(log.WithComponent("journal"))

	return []events.Subscription{
		bus.SubscribeFunc(events.CurveCreated, func(_ context.Context, e events.Event) error {
			ev, ok := e.(*events.CurveCreatedEvent)
			if !ok {
				return nil
			}
			journal.WithCurve(ev.Mint, ev.BondingCurve).Info("Curve launched",
				zap.String("symbol", ev.Symbol),
				zap.String("creator", ev.Creator.String()),
				zap.Int64("start_time", ev.StartTime))
			return nil
		}),
		bus.SubscribeFunc(events.TradeExecuted, func(_ context.Context, e events.Event) error {
			ev, ok := e.(*events.TradeEvent)
			if !ok {
				return nil
			}
			journal.WithTrader(ev.User, ev.IsBuy).Info("Trade",
				zap.String("mint", ev.Mint.String()),
				zap.Uint64("sol_amount", ev.SolAmount),
				zap.Uint64("token_amount", ev.TokenAmount),
				zap.Uint64("fee_lamports", ev.FeeLamports),
				zap.Int64("unix_time", ev.UnixTime))
			return nil
		}),
		bus.SubscribeFunc(events.TradeRejected, func(_ context.Context, e events.Event) error {
			ev, ok := e.(*events.TradeRejectedEvent)
			if !ok {
				return nil
			}
			journal.WithTrader(ev.User, ev.IsBuy).Debug("Trade rejected",
				zap.String("mint", ev.Mint.String()),
				zap.Error(ev.Error))
			return nil
		}),
		bus.SubscribeFunc(events.CurveCompleted, func(_ context.Context, e events.Event) error {
			ev, ok := e.(*events.CurveCompletedEvent)
			if !ok {
				return nil
			}
			journal.WithCurve(ev.Mint, ev.BondingCurve).Info("Curve complete",
				zap.String("user", ev.User.String()),
				zap.Uint64("virtual_sol_reserves", ev.VirtualSolReserves),
				zap.Uint64("real_sol_reserves", ev.RealSolReserves))
			return nil
		}),
		bus.SubscribeFunc(events.GlobalUpdated, func(_ context.Context, e events.Event) error {
			ev, ok := e.(*events.GlobalUpdatedEvent)
			if !ok {
				return nil
			}
			journal.Info("Global settings changed",
				zap.String("status", ev.Status),
				zap.Bool("whitelist_enabled", ev.WhitelistEnabled))
			return nil
		}),
	}
}
