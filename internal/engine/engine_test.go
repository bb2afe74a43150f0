package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curve-engine/internal/config"
	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
	"github.com/rovshanmuradov/curve-engine/internal/utils/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Storage.DSN = ":memory:"
	return cfg
}

func newTestEngine(t *testing.T, now *atomic.Int64) *Engine {
	t.Helper()
	e, err := New(context.Background(), testConfig(t),
		WithClock(now.Load),
		WithLogger(logger.Wrap(zap.NewNop())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func TestNewEngineTradesAndPersists(t *testing.T) {
	ctx := context.Background()
	now := &atomic.Int64{}
	now.Store(1_700_000_000)
	e := newTestEngine(t, now)

	creator := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	require.NoError(t, e.Ledger.Airdrop(creator, 1_000_000_000))
	require.NoError(t, e.Ledger.Airdrop(user, 10_000_000_000))

	created, err := e.Program.CreateCurve(ctx, settlement.CreateParams{Creator: creator, Symbol: "MOON", Whitelisted: true})
	require.NoError(t, err)

	q, err := e.Quotes.QuoteBuy(created.Mint, 1_000_000_000, 0)
	require.NoError(t, err)

	res, err := e.Program.Swap(ctx, settlement.SwapParams{Mint: created.Mint, User: user, ExactInAmount: 1_000_000_000})
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, res.TokenAmount)
	assert.Equal(t, q.FeeLamports, res.FeeLamports)

	trades, err := e.Store.ListTrades(ctx, created.Mint.String(), 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, res.TradeID, trades[0].TradeID)

	curves, err := e.Store.ListCurves(ctx, nil)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	assert.Equal(t, created.Mint.String(), curves[0].Mint)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{name: "unknown driver", mutate: func(cfg *config.Config) { cfg.Storage.Driver = "mysql" }},
		{name: "unknown gorm level", mutate: func(cfg *config.Config) { cfg.Storage.LogLevel = "chatty" }},
		{name: "bad authority", mutate: func(cfg *config.Config) { cfg.Curve.GlobalAuthority = "not-base58!" }},
		{name: "bad status", mutate: func(cfg *config.Config) { cfg.Curve.Status = "halted" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, WithLogger(logger.Wrap(zap.NewNop())))
			assert.Error(t, err)
		})
	}
}

func TestServeMetrics(t *testing.T) {
	now := &atomic.Int64{}
	e := newTestEngine(t, now)
	e.Metrics.RecordCurveCreated()

	addr, err := e.ServeMetrics("127.0.0.1:0")
	require.NoError(t, err)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "curve_engine_curves_total")
}

func TestParseGormLevel(t *testing.T) {
	tests := []struct {
		raw     string
		want    gormlogger.LogLevel
		wantErr bool
	}{
		{raw: "", want: gormlogger.Warn},
		{raw: "silent", want: gormlogger.Silent},
		{raw: "ERROR", want: gormlogger.Error},
		{raw: "info", want: gormlogger.Info},
		{raw: "debug", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseGormLevel(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShutdownHandlerOrderAndErrors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop())

	var order []string
	boom := errors.New("boom")
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return boom })
	sh.AddFunc("third", func() error { order = append(order, "third"); return nil })

	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"third", "second", "first"}, order)

	// повторный вызов ничего не закрывает
	assert.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdownHandlerTimeout(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop())
	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sh.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJournalTagsEveryEntry(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	bus := events.NewBus(zap.NewNop(), 16)
	subscribeJournal(bus, logger.Wrap(zap.New(core)))

	mint := solana.NewWallet().PublicKey()
	base := func(et events.EventType) events.BaseEvent {
		return events.BaseEvent{EventType: et, EventTime: time.Now()}
	}
	for _, e := range []events.Event{
		&events.CurveCreatedEvent{BaseEvent: base(events.CurveCreated), Mint: mint, Symbol: "MOON"},
		&events.TradeEvent{BaseEvent: base(events.TradeExecuted), Mint: mint, IsBuy: true, SolAmount: 1},
		&events.TradeRejectedEvent{BaseEvent: base(events.TradeRejected), Mint: mint, Error: errors.New("slippage")},
		&events.CurveCompletedEvent{BaseEvent: base(events.CurveCompleted), Mint: mint},
		&events.GlobalUpdatedEvent{BaseEvent: base(events.GlobalUpdated), Status: "paused"},
	} {
		require.NoError(t, bus.PublishWait(context.Background(), e))
	}
	// остановка дожидается обработки очереди
	require.NoError(t, bus.Shutdown(context.Background()))

	entries := logs.All()
	require.Len(t, entries, 5)
	for _, entry := range entries {
		assert.Equal(t, "journal", entry.ContextMap()["component"], entry.Message)
	}
}
