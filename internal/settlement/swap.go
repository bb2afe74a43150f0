// ===================================
// File: internal/settlement/swap.go
// ===================================
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/custody"
	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// SwapParams describes one trade against a curve. BaseIn means the user
// sells tokens (base) for SOL; otherwise the user spends SOL on tokens.
type SwapParams struct {
	Mint          solana.PublicKey
	User          solana.PublicKey
	BaseIn        bool
	ExactInAmount uint64
	MinOutAmount  uint64
}

// IsBuy reports whether the user pays SOL.
func (p SwapParams) IsBuy() bool {
	return !p.BaseIn
}

// SwapResult is the settled trade. SolAmount excludes the fee.
type SwapResult struct {
	TradeID     string
	SolAmount   uint64
	TokenAmount uint64
	FeeLamports uint64
	Graduated   bool
	UnixTime    int64
	Curve       curve.BondingCurve
}

// Swap settles a buy or sell. Either every balance and the curve move
// together or nothing changes.
func (p *Program) Swap(ctx context.Context, params SwapParams) (*SwapResult, error) {
	start := time.Now()
	isBuy := params.IsBuy()

	result, err := p.swap(ctx, params)

	if p.metrics != nil {
		p.metrics.RecordTrade(ctx, isBuy, time.Since(start), err == nil)
	}
	if err != nil {
		p.recordInvariantFailure(err)
		p.logger.Warn("Swap rejected",
			zap.String("mint", params.Mint.String()),
			zap.String("user", params.User.String()),
			zap.Bool("is_buy", isBuy),
			zap.Uint64("exact_in_amount", params.ExactInAmount),
			zap.Uint64("min_out_amount", params.MinOutAmount),
			zap.Error(err))
		p.publish(ctx, &events.TradeRejectedEvent{
			BaseEvent: events.BaseEvent{EventType: events.TradeRejected, EventTime: time.Now()},
			Mint:      params.Mint,
			User:      params.User,
			IsBuy:     isBuy,
			Error:     err,
		})
		return nil, err
	}
	return result, nil
}

func (p *Program) swap(ctx context.Context, params SwapParams) (*SwapResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	isBuy := params.IsBuy()

	// Шаг 1: Проверка статуса программы
	global := p.Global()
	if !global.Status.CanSwap() {
		return nil, fmt.Errorf("%w: status %s", ErrProgramNotRunning, global.Status)
	}

	m, err := p.market(params.Mint)
	if err != nil {
		return nil, err
	}

	// Шаги 2-4 идут под блокировкой кривой; commit возвращает с захваченным emitMu
	result, row, err := p.commitSwap(m, params, global.FeeReceiver)
	if err != nil {
		return nil, err
	}
	defer m.emitMu.Unlock()

	// Шаг 5: Метрики, события, журнал
	next := &result.Curve
	if p.metrics != nil {
		p.metrics.RecordFee(result.FeeLamports)
		p.metrics.UpdateCurveReserves(params.Mint.String(), next.VirtualSolReserves, next.VirtualTokenReserves, next.RealSolReserves, next.RealTokenReserves)
		if result.Graduated {
			p.metrics.RecordCurveCompleted()
		}
	}

	p.publish(ctx, &events.TradeEvent{
		BaseEvent:            events.BaseEvent{EventType: events.TradeExecuted, EventTime: time.Now()},
		Mint:                 params.Mint,
		User:                 params.User,
		IsBuy:                isBuy,
		SolAmount:            result.SolAmount,
		TokenAmount:          result.TokenAmount,
		FeeLamports:          result.FeeLamports,
		UnixTime:             result.UnixTime,
		VirtualSolReserves:   next.VirtualSolReserves,
		VirtualTokenReserves: next.VirtualTokenReserves,
		RealSolReserves:      next.RealSolReserves,
		RealTokenReserves:    next.RealTokenReserves,
	})
	if result.Graduated {
		p.publish(ctx, &events.CurveCompletedEvent{
			BaseEvent:            events.BaseEvent{EventType: events.CurveCompleted, EventTime: time.Now()},
			User:                 params.User,
			Mint:                 params.Mint,
			BondingCurve:         m.address,
			VirtualSolReserves:   next.VirtualSolReserves,
			VirtualTokenReserves: next.VirtualTokenReserves,
			RealSolReserves:      next.RealSolReserves,
		})
	}

	p.persistCurve(ctx, row)
	p.persistTrade(ctx, params, result)

	return result, nil
}

// commitSwap validates and settles the trade under the curve lock. On
// success it returns holding m.emitMu so the caller emits events and rows
// in commit order without blocking other trades on the curve.
func (p *Program) commitSwap(m *market, params SwapParams, feeReceiver solana.PublicKey) (*SwapResult, *models.Curve, error) {
	isBuy := params.IsBuy()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Шаг 2: Валидация запроса
	now := p.clock()
	if !m.state.IsStarted(now) {
		return nil, nil, fmt.Errorf("%w: starts at %d, now %d", ErrCurveNotStarted, m.state.StartTime, now)
	}
	if params.ExactInAmount == 0 {
		return nil, nil, ErrMinSwap
	}
	if m.state.Complete {
		return nil, nil, ErrBondingCurveComplete
	}

	log := p.logger.With(
		zap.String("mint", params.Mint.String()),
		zap.String("user", params.User.String()),
		zap.Bool("is_buy", isBuy))
	log.Debug("Settling swap",
		zap.Uint64("exact_in_amount", params.ExactInAmount),
		zap.Uint64("min_out_amount", params.MinOutAmount))

	// Шаг 3: Расчет и перевод средств в одной транзакции леджера
	next := m.state.Clone()
	var result SwapResult
	err := p.ledger.Update(func(tx *custody.Tx) error {
		if err := tx.Thaw(m.custody, m.address); err != nil {
			return err
		}

		var err error
		if isBuy {
			err = p.settleBuy(tx, m, next, feeReceiver, params, now, &result)
		} else {
			err = p.settleSell(tx, m, next, feeReceiver, params, now, &result)
		}
		if err != nil {
			return err
		}

		if !next.Complete {
			if err := tx.Freeze(m.custody, m.address); err != nil {
				return err
			}
		}

		obs, err := observe(tx, m.address, m.custody)
		if err != nil {
			return err
		}
		return curve.CheckInvariant(next, obs, CurveRentExemptMinimum, m.initialRealTokenReserves)
	})
	if err != nil {
		return nil, nil, err
	}

	// Шаг 4: Фиксация состояния кривой
	*m.state = *next
	result.TradeID = uuid.NewString()
	result.UnixTime = now
	result.Curve = *next

	log.Info("Swap settled",
		zap.String("trade_id", result.TradeID),
		zap.Uint64("sol_amount", result.SolAmount),
		zap.Uint64("token_amount", result.TokenAmount),
		zap.Uint64("fee_lamports", result.FeeLamports),
		zap.Bool("graduated", result.Graduated))
	if result.Graduated {
		log.Info("Bonding curve completed",
			zap.Uint64("virtual_sol_reserves", next.VirtualSolReserves),
			zap.Uint64("real_sol_reserves", next.RealSolReserves))
	}

	row := m.row()
	m.emitMu.Lock()
	return &result, row, nil
}

func (p *Program) settleBuy(tx *custody.Tx, m *market, next *curve.BondingCurve, feeReceiver solana.PublicKey, params SwapParams, now int64, out *SwapResult) error {
	buy, err := next.ApplyBuy(params.ExactInAmount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuyFailed, err)
	}
	fee, err := next.CalculateFee(buy.SolAmount, now)
	if err != nil {
		return fmt.Errorf("%w: fee: %w", ErrBuyFailed, err)
	}
	if buy.TokenAmount < params.MinOutAmount {
		return &SlippageError{IsBuy: true, Received: buy.TokenAmount, MinAmount: params.MinOutAmount}
	}

	total := buy.SolAmount + fee
	if total < buy.SolAmount {
		return fmt.Errorf("%w: sol plus fee overflows", ErrBuyFailed)
	}
	if have := tx.Lamports(params.User); have < total {
		return fmt.Errorf("%w: need %d lamports, have %d", ErrInsufficientUserSOL, total, have)
	}

	userATA, err := tx.CreateAssociatedAccount(params.User, params.Mint)
	if err != nil {
		return err
	}
	if err := tx.Transfer(m.custody, userATA, m.address, buy.TokenAmount); err != nil {
		return err
	}
	if err := tx.TransferLamports(params.User, m.address, buy.SolAmount); err != nil {
		return err
	}
	if err := tx.TransferLamports(params.User, feeReceiver, fee); err != nil {
		return err
	}

	out.SolAmount = buy.SolAmount
	out.TokenAmount = buy.TokenAmount
	out.FeeLamports = fee
	out.Graduated = buy.Graduated
	return nil
}

func (p *Program) settleSell(tx *custody.Tx, m *market, next *curve.BondingCurve, feeReceiver solana.PublicKey, params SwapParams, now int64, out *SwapResult) error {
	userATA, _, err := solana.FindAssociatedTokenAddress(params.User, params.Mint)
	if err != nil {
		return fmt.Errorf("failed to derive token account: %w", err)
	}
	acc, err := tx.TokenAccount(userATA)
	if err != nil {
		if errors.Is(err, custody.ErrAccountNotFound) {
			return fmt.Errorf("%w: no token account", ErrInsufficientUserTokens)
		}
		return err
	}
	if acc.Amount < params.ExactInAmount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientUserTokens, params.ExactInAmount, acc.Amount)
	}

	sell, err := next.ApplySell(params.ExactInAmount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSellFailed, err)
	}
	fee, err := next.CalculateFee(sell.SolAmount, now)
	if err != nil {
		return fmt.Errorf("%w: fee: %w", ErrSellFailed, err)
	}
	payout := sell.SolAmount - fee
	if payout < params.MinOutAmount {
		return &SlippageError{IsBuy: false, Received: payout, MinAmount: params.MinOutAmount}
	}

	if err := tx.Transfer(userATA, m.custody, params.User, sell.TokenAmount); err != nil {
		return err
	}
	if err := tx.TransferLamports(m.address, params.User, payout); err != nil {
		return err
	}
	if err := tx.TransferLamports(m.address, feeReceiver, fee); err != nil {
		return err
	}

	out.SolAmount = payout
	out.TokenAmount = sell.TokenAmount
	out.FeeLamports = fee
	return nil
}

func (p *Program) persistTrade(ctx context.Context, params SwapParams, r *SwapResult) {
	if p.store == nil {
		return
	}
	trade := &models.Trade{
		TradeID:              r.TradeID,
		Mint:                 params.Mint.String(),
		User:                 params.User.String(),
		IsBuy:                params.IsBuy(),
		SolAmount:            models.U64(r.SolAmount),
		TokenAmount:          models.U64(r.TokenAmount),
		FeeLamports:          models.U64(r.FeeLamports),
		UnixTime:             r.UnixTime,
		Graduated:            r.Graduated,
		VirtualSolReserves:   models.U64(r.Curve.VirtualSolReserves),
		VirtualTokenReserves: models.U64(r.Curve.VirtualTokenReserves),
		RealSolReserves:      models.U64(r.Curve.RealSolReserves),
		RealTokenReserves:    models.U64(r.Curve.RealTokenReserves),
	}
	if err := p.store.SaveTrade(ctx, trade); err != nil {
		p.logger.Error("Failed to persist trade", zap.String("trade_id", r.TradeID), zap.Error(err))
	}
}
