// =====================================
// File: internal/settlement/create.go
// =====================================
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/custody"
	"github.com/rovshanmuradov/curve-engine/internal/events"
)

// CreateParams describes a new launch.
type CreateParams struct {
	Creator solana.PublicKey
	// Mint is generated when nil.
	Mint   *solana.PublicKey
	Name   string
	Symbol string
	URI    string
	// StartTime defaults to now and must not lie in the future.
	StartTime *int64
	// Whitelisted is the caller's verdict on the creator; it is only
	// consulted while the whitelist is enabled.
	Whitelisted bool
}

// CreateResult lists the accounts created for the launch.
type CreateResult struct {
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Custody      solana.PublicKey
	Curve        curve.BondingCurve
}

// CreateCurve launches a new curve: mints the whole supply into the curve's
// custody account, revokes the mint authority and freezes the custody.
func (p *Program) CreateCurve(ctx context.Context, params CreateParams) (*CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Шаг 1: Проверка состояния программы и whitelist
	global := p.Global()
	if !global.Status.CanLaunch() {
		return nil, fmt.Errorf("%w: status %s", ErrProgramNotRunning, global.Status)
	}
	if global.WhitelistEnabled && !params.Whitelisted {
		return nil, fmt.Errorf("%w: %s", ErrNotWhitelisted, params.Creator)
	}

	// Шаг 2: Время старта
	now := p.clock()
	startTime := now
	if params.StartTime != nil {
		if *params.StartTime > now {
			return nil, fmt.Errorf("%w: %d > %d", ErrInvalidStartTime, *params.StartTime, now)
		}
		startTime = *params.StartTime
	}

	// Шаг 3: Вычисление адресов
	mint := solana.NewWallet().PublicKey()
	if params.Mint != nil {
		mint = *params.Mint
	}
	curveAddr, bump, err := curve.DeriveBondingCurveAddress(p.programID, mint)
	if err != nil {
		return nil, err
	}
	custodyAddr, err := curve.DeriveCustodyAddress(curveAddr, mint)
	if err != nil {
		return nil, err
	}

	// Шаг 4: Состояние кривой из снимка настроек
	state, err := curve.NewBondingCurve(mint, params.Creator, global, startTime, bump)
	if err != nil {
		return nil, err
	}

	log := p.logger.With(
		zap.String("mint", mint.String()),
		zap.String("bonding_curve", curveAddr.String()),
		zap.String("creator", params.Creator.String()))

	p.mu.Lock()
	if _, exists := p.markets[mint]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCurveExists, mint)
	}

	// Шаг 5: Аккаунты, выпуск токенов, блокировка и проверка инварианта
	err = p.ledger.Update(func(tx *custody.Tx) error {
		if err := tx.TransferLamports(params.Creator, curveAddr, CurveRentExemptMinimum); err != nil {
			if errors.Is(err, custody.ErrInsufficientFunds) {
				return fmt.Errorf("%w: curve account rent: %w", ErrInsufficientUserSOL, err)
			}
			return err
		}
		if err := tx.CreateMint(mint, global.MintDecimals, curveAddr, curveAddr); err != nil {
			return err
		}
		if _, err := tx.CreateAssociatedAccount(curveAddr, mint); err != nil {
			return err
		}
		if err := tx.MintTo(mint, custodyAddr, curveAddr, global.TokenTotalSupply); err != nil {
			return err
		}
		if err := tx.RevokeMintAuthority(mint, curveAddr); err != nil {
			return err
		}
		if err := tx.Freeze(custodyAddr, curveAddr); err != nil {
			return err
		}
		obs, err := observe(tx, curveAddr, custodyAddr)
		if err != nil {
			return err
		}
		return curve.CheckInvariant(state, obs, CurveRentExemptMinimum, global.InitialRealTokenReserves)
	})
	if err != nil {
		p.mu.Unlock()
		p.recordInvariantFailure(err)
		log.Warn("Curve creation rejected", zap.Error(err))
		return nil, fmt.Errorf("create curve: %w", err)
	}

	m := &market{
		address:                  curveAddr,
		custody:                  custodyAddr,
		state:                    state,
		initialRealTokenReserves: global.InitialRealTokenReserves,
		name:                     params.Name,
		symbol:                   params.Symbol,
		uri:                      params.URI,
	}
	row := m.row()
	snap := *state
	result := &CreateResult{Mint: mint, BondingCurve: curveAddr, Custody: custodyAddr, Curve: snap}
	// первые сделки по кривой публикуются только после события создания
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	p.markets[mint] = m
	p.mu.Unlock()

	log.Info("Bonding curve created",
		zap.Int64("start_time", startTime),
		zap.Uint64("virtual_sol_reserves", snap.VirtualSolReserves),
		zap.Uint64("virtual_token_reserves", snap.VirtualTokenReserves),
		zap.Uint64("real_token_reserves", snap.RealTokenReserves))

	if p.metrics != nil {
		p.metrics.RecordCurveCreated()
		p.metrics.UpdateCurveReserves(mint.String(), snap.VirtualSolReserves, snap.VirtualTokenReserves, snap.RealSolReserves, snap.RealTokenReserves)
	}
	p.publish(ctx, &events.CurveCreatedEvent{
		BaseEvent:            events.BaseEvent{EventType: events.CurveCreated, EventTime: time.Now()},
		Mint:                 mint,
		BondingCurve:         curveAddr,
		Creator:              params.Creator,
		Name:                 params.Name,
		Symbol:               params.Symbol,
		URI:                  params.URI,
		StartTime:            startTime,
		VirtualSolReserves:   snap.VirtualSolReserves,
		VirtualTokenReserves: snap.VirtualTokenReserves,
		RealTokenReserves:    snap.RealTokenReserves,
		TokenTotalSupply:     snap.TokenTotalSupply,
	})

	p.persistCurve(ctx, row)

	return result, nil
}

func (p *Program) recordInvariantFailure(err error) {
	var invErr *curve.InvariantError
	if p.metrics != nil && errors.As(err, &invErr) {
		p.metrics.RecordInvariantFailure(string(invErr.Check))
	}
}
