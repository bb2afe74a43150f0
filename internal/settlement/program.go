// ======================================
// File: internal/settlement/program.go
// ======================================
package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/custody"
	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/storage"
	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
	"github.com/rovshanmuradov/curve-engine/internal/utils/metrics"
)

// CurveRentExemptMinimum is the rent held by every curve account on top of its reserves.
var CurveRentExemptMinimum = custody.RentExemptMinimum(curve.BondingCurveAccountSize)

// Clock returns the current unix timestamp in seconds.
type Clock func() int64

// SystemClock reads the wall clock.
func SystemClock() int64 {
	return time.Now().Unix()
}

// Options собирает зависимости программы. Bus, Store и Metrics опциональны.
type Options struct {
	ProgramID solana.PublicKey
	Global    curve.GlobalConfig
	Ledger    *custody.Ledger
	Bus       *events.Bus
	Store     storage.Storage
	Metrics   *metrics.Collector
	Logger    *zap.Logger
	Clock     Clock
}

// market is one curve plus the data settlement needs around it.
type market struct {
	mu sync.Mutex
	// taken before mu is released after a commit; events and rows leave in commit order
	emitMu  sync.Mutex
	address solana.PublicKey
	custody solana.PublicKey
	state   *curve.BondingCurve
	// seed value; later settings changes must not shift the invariant
	initialRealTokenReserves uint64
	name                     string
	symbol                   string
	uri                      string
}

// Program settles curve launches and swaps against a custody ledger.
// Trades on one curve are serialized; different curves settle independently
// up to the ledger, which serializes the custody movements.
type Program struct {
	programID solana.PublicKey
	ledger    *custody.Ledger
	bus       *events.Bus
	store     storage.Storage
	metrics   *metrics.Collector
	logger    *zap.Logger
	clock     Clock

	mu      sync.RWMutex
	global  curve.GlobalConfig
	markets map[solana.PublicKey]*market
}

// NewProgram validates the initial settings and builds a program.
func NewProgram(opts Options) (*Program, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("custody ledger is required")
	}
	if err := opts.Global.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.ProgramID.IsZero() {
		opts.ProgramID = curve.DefaultProgramID
	}

	global := opts.Global
	global.Initialized = true

	return &Program{
		programID: opts.ProgramID,
		ledger:    opts.Ledger,
		bus:       opts.Bus,
		store:     opts.Store,
		metrics:   opts.Metrics,
		logger:    opts.Logger.Named("settlement"),
		clock:     opts.Clock,
		global:    global,
		markets:   make(map[solana.PublicKey]*market),
	}, nil
}

// ProgramID returns the address curves are derived under.
func (p *Program) ProgramID() solana.PublicKey {
	return p.programID
}

// Global returns the current settings snapshot.
func (p *Program) Global() curve.GlobalConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.global
}

// SetParams applies a partial settings update. Only the global authority may
// call it. Existing curves keep their reserves.
func (p *Program) SetParams(ctx context.Context, authority solana.PublicKey, settings curve.GlobalSettings) (curve.GlobalConfig, error) {
	return p.updateGlobal(ctx, authority, func(g curve.GlobalConfig) curve.GlobalConfig {
		return g.WithSettings(settings)
	})
}

// SetAuthority replaces the global and/or migration authority.
func (p *Program) SetAuthority(ctx context.Context, authority solana.PublicKey, globalAuthority, migrationAuthority *solana.PublicKey) (curve.GlobalConfig, error) {
	return p.updateGlobal(ctx, authority, func(g curve.GlobalConfig) curve.GlobalConfig {
		return g.WithAuthorities(globalAuthority, migrationAuthority)
	})
}

func (p *Program) updateGlobal(ctx context.Context, authority solana.PublicKey, apply func(curve.GlobalConfig) curve.GlobalConfig) (curve.GlobalConfig, error) {
	p.mu.Lock()
	if !authority.Equals(p.global.GlobalAuthority) {
		p.mu.Unlock()
		return curve.GlobalConfig{}, ErrInvalidGlobalAuthority
	}
	next := apply(p.global)
	if err := next.Validate(); err != nil {
		p.mu.Unlock()
		return curve.GlobalConfig{}, err
	}
	p.global = next
	p.mu.Unlock()

	p.logger.Info("Global settings updated",
		zap.String("status", next.Status.String()),
		zap.String("fee_receiver", next.FeeReceiver.String()),
		zap.Bool("whitelist_enabled", next.WhitelistEnabled))

	p.publish(ctx, &events.GlobalUpdatedEvent{
		BaseEvent:                   events.BaseEvent{EventType: events.GlobalUpdated, EventTime: time.Now()},
		GlobalAuthority:             next.GlobalAuthority,
		MigrationAuthority:          next.MigrationAuthority,
		FeeReceiver:                 next.FeeReceiver,
		Status:                      next.Status.String(),
		InitialVirtualTokenReserves: next.InitialVirtualTokenReserves,
		InitialVirtualSolReserves:   next.InitialVirtualSolReserves,
		InitialRealTokenReserves:    next.InitialRealTokenReserves,
		TokenTotalSupply:            next.TokenTotalSupply,
		MintDecimals:                next.MintDecimals,
		MigrateFeeAmount:            next.MigrateFeeAmount,
		WhitelistEnabled:            next.WhitelistEnabled,
	})
	p.persistGlobal(ctx, next)

	return next, nil
}

func (p *Program) market(mint solana.PublicKey) (*market, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.markets[mint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCurveNotFound, mint)
	}
	return m, nil
}

// CurveInfo is a consistent copy of one curve and its addresses.
type CurveInfo struct {
	State                    curve.BondingCurve
	Address                  solana.PublicKey
	Custody                  solana.PublicKey
	InitialRealTokenReserves uint64
	Name                     string
	Symbol                   string
	URI                      string
}

// Curve returns a copy of the curve for mint.
func (p *Program) Curve(mint solana.PublicKey) (CurveInfo, error) {
	m, err := p.market(mint)
	if err != nil {
		return CurveInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info(), nil
}

// Curves returns copies of all curves ordered by start time, then mint.
func (p *Program) Curves() []CurveInfo {
	p.mu.RLock()
	markets := make([]*market, 0, len(p.markets))
	for _, m := range p.markets {
		markets = append(markets, m)
	}
	p.mu.RUnlock()

	out := make([]CurveInfo, 0, len(markets))
	for _, m := range markets {
		m.mu.Lock()
		out = append(out, m.info())
		m.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].State.StartTime != out[j].State.StartTime {
			return out[i].State.StartTime < out[j].State.StartTime
		}
		return out[i].State.Mint.String() < out[j].State.Mint.String()
	})
	return out
}

func (m *market) info() CurveInfo {
	return CurveInfo{
		State:                    *m.state,
		Address:                  m.address,
		Custody:                  m.custody,
		InitialRealTokenReserves: m.initialRealTokenReserves,
		Name:                     m.name,
		Symbol:                   m.symbol,
		URI:                      m.uri,
	}
}

// Observe reports the custody holdings of a curve as the invariant sees them.
func (p *Program) Observe(mint solana.PublicKey) (curve.CustodyObservation, error) {
	m, err := p.market(mint)
	if err != nil {
		return curve.CustodyObservation{}, err
	}
	var obs curve.CustodyObservation
	err = p.ledger.Update(func(tx *custody.Tx) error {
		obs, err = observe(tx, m.address, m.custody)
		return err
	})
	return obs, err
}

func observe(tx *custody.Tx, curveAddr, custodyAddr solana.PublicKey) (curve.CustodyObservation, error) {
	acc, err := tx.TokenAccount(custodyAddr)
	if err != nil {
		return curve.CustodyObservation{}, err
	}
	return curve.CustodyObservation{
		CurveAddress:      curveAddr,
		TokenAccountOwner: acc.Owner,
		TokenBalance:      acc.Amount,
		Lamports:          tx.Lamports(curveAddr),
		Frozen:            acc.Frozen,
	}, nil
}

// Restore loads curves persisted by an earlier run. Custody balances are
// not persisted, so restored curves are read-only until the ledger is
// rebuilt; callers use this for reporting.
func (p *Program) Restore(ctx context.Context) ([]CurveInfo, error) {
	if p.store == nil {
		return nil, nil
	}
	rows, err := p.store.ListCurves(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list curves: %w", err)
	}
	out := make([]CurveInfo, 0, len(rows))
	for _, row := range rows {
		state, err := row.State()
		if err != nil {
			return nil, err
		}
		addr, err := solana.PublicKeyFromBase58(row.BondingCurve)
		if err != nil {
			return nil, fmt.Errorf("invalid bonding curve %q: %w", row.BondingCurve, err)
		}
		custodyAddr, err := curve.DeriveCustodyAddress(addr, state.Mint)
		if err != nil {
			return nil, err
		}
		out = append(out, CurveInfo{
			State:                    *state,
			Address:                  addr,
			Custody:                  custodyAddr,
			InitialRealTokenReserves: uint64(row.InitialRealTokenReserves),
			Name:                     row.Name,
			Symbol:                   row.Symbol,
			URI:                      row.URI,
		})
	}
	return out, nil
}

func (p *Program) publish(ctx context.Context, event events.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.PublishWait(ctx, event); err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// row snapshots the market for storage. Caller holds m.mu.
func (m *market) row() *models.Curve {
	row := models.NewCurve(m.address, m.state, m.initialRealTokenReserves)
	row.Name, row.Symbol, row.URI = m.name, m.symbol, m.uri
	return row
}

func (p *Program) persistCurve(ctx context.Context, row *models.Curve) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveCurve(ctx, row); err != nil {
		p.logger.Error("Failed to persist curve", zap.String("mint", row.Mint), zap.Error(err))
	}
}

func (p *Program) persistGlobal(ctx context.Context, g curve.GlobalConfig) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveGlobal(ctx, models.NewGlobalSnapshot(g)); err != nil {
		p.logger.Error("Failed to persist global settings", zap.Error(err))
	}
}
