package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/config"
	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/engine"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
	"github.com/rovshanmuradov/curve-engine/internal/utils/logger"
)

const launchScenario = `
name: launch
start_time: 1700000000
authority: admin
fee_receiver: treasury
accounts:
  creator: 1sol
  alice: 500sol
  bob: 10sol
steps:
  - action: create
    curve: moon
    user: creator
    name: Moon
    symbol: MOON
    uri: https://example.org/moon.json
  - action: buy
    curve: moon
    user: alice
    amount: 1sol
    min_out: 34_612_904_000_000
  - action: quote
    curve: moon
    amount: 1sol
  - action: advance
    slots: 251
  - action: sell
    curve: moon
    user: alice
    amount: 14_612_904_000_000
  - action: sell
    curve: moon
    user: bob
    amount: 1_000
    expect_error: insufficient_tokens
  - action: buy
    curve: moon
    user: bob
    amount: 0.1sol
    min_out: 1_000_000_000_000_000
    expect_error: slippage
  - action: set_params
    user: bob
    status: paused
    expect_error: unauthorized
  - action: set_params
    user: admin
    status: paused
  - action: sell
    curve: moon
    user: alice
    amount: all
    expect_error: not_running
`

type harness struct {
	engine *engine.Engine
	clock  *Clock
	runner *Runner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Storage.DSN = ":memory:"

	clock := NewClock(0)
	e, err := engine.New(ctx, cfg, engine.WithClock(clock.Now), engine.WithLogger(logger.Wrap(zap.NewNop())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })

	return &harness{
		engine: e,
		clock:  clock,
		runner: NewRunner(e.Program, e.Ledger, e.Quotes, clock, zap.NewNop()),
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    Amount
		wantErr bool
	}{
		{raw: "1000", want: Amount{Value: 1000}},
		{raw: "34_612_904_000_000", want: Amount{Value: 34_612_904_000_000}},
		{raw: "all", want: Amount{All: true}},
		{raw: "ALL", want: Amount{All: true}},
		{raw: "1sol", want: Amount{Value: 1_000_000_000}},
		{raw: "1.5 SOL", want: Amount{Value: 1_500_000_000}},
		{raw: ".25sol", want: Amount{Value: 250_000_000}},
		{raw: "0.0000000001sol", wantErr: true},
		{raw: "-5", wantErr: true},
		{raw: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsInvalidScenarios(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no steps", yaml: "name: empty\n"},
		{name: "unknown action", yaml: "steps:\n  - action: mint\n"},
		{name: "buy without user", yaml: "steps:\n  - action: buy\n    curve: moon\n    amount: 1\n"},
		{name: "all on buy", yaml: "steps:\n  - action: buy\n    curve: moon\n    user: a\n    amount: all\n"},
		{name: "unknown expectation", yaml: "steps:\n  - action: advance\n    seconds: 1\n    expect_error: boom\n"},
		{name: "backwards", yaml: "steps:\n  - action: advance\n    seconds: -1\n"},
		{name: "bad amount", yaml: "steps:\n  - action: airdrop\n    user: a\n    amount: heaps\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRunLaunchScenario(t *testing.T) {
	h := newHarness(t)

	s, err := Parse([]byte(launchScenario))
	require.NoError(t, err)

	report, err := h.runner.Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, report.Steps, len(s.Steps))

	buy := report.Steps[1].Swap
	require.NotNil(t, buy)
	assert.Equal(t, uint64(34_612_904_000_000), buy.TokenAmount)
	assert.Equal(t, uint64(990_000_000), buy.FeeLamports)

	q := report.Steps[2].Quote
	require.NotNil(t, q)
	assert.True(t, q.IsBuy)
	assert.Equal(t, curve.FeePhaseLaunch, q.FeePhase)

	assert.Equal(t, int64(1_700_000_000+251*curve.SlotDuration), report.Steps[3].Now)

	sell := report.Steps[4].Swap
	require.NotNil(t, sell)
	assert.Equal(t, uint64(426_690_000), sell.SolAmount)
	assert.Equal(t, uint64(4_310_000), sell.FeeLamports)

	for _, i := range []int{5, 6, 7, 9} {
		assert.True(t, report.Steps[i].Expected, "step %d", i+1)
		assert.Error(t, report.Steps[i].Err)
	}

	treasury := report.Accounts["treasury"]
	assert.Equal(t, h.engine.Program.Global().FeeReceiver, treasury)
	assert.Equal(t, uint64(990_000_000+4_310_000), h.engine.Ledger.Lamports(treasury))
	assert.Equal(t, curve.StatusPaused, h.engine.Program.Global().Status)

	alice := report.Accounts["alice"]
	balance, err := h.engine.Ledger.TokenBalance(alice, report.Curves["moon"])
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000_000_000_000), balance)
}

func TestRunStopsOnUnexpectedOutcome(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		steps   int
	}{
		{
			name: "unexpected failure",
			yaml: `
start_time: 100
accounts:
  bob: 1sol
steps:
  - action: create
    curve: moon
    user: bob
  - action: sell
    curve: moon
    user: bob
    amount: all
  - action: advance
    seconds: 1
`,
			wantErr: settlement.ErrMinSwap,
			steps:   2,
		},
		{
			name: "expected failure did not happen",
			yaml: `
accounts:
  bob: 1sol
steps:
  - action: create
    curve: moon
    user: bob
    expect_error: not_whitelisted
`,
			steps: 1,
		},
		{
			name: "unknown curve label",
			yaml: `
steps:
  - action: buy
    curve: nowhere
    user: bob
    amount: 1
`,
			wantErr: settlement.ErrCurveNotFound,
			steps:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			s, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			report, err := h.runner.Run(context.Background(), s)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Len(t, report.Steps, tt.steps)
		})
	}
}

func TestRunGraduation(t *testing.T) {
	h := newHarness(t)

	s, err := Parse([]byte(`
start_time: 1700000000
accounts:
  creator: 1sol
  whale: 300sol
steps:
  - action: create
    curve: moon
    user: creator
  - action: advance
    slots: 300
  - action: buy
    curve: moon
    user: whale
    amount: 100sol
  - action: buy
    curve: moon
    user: whale
    amount: 1sol
    expect_error: complete
  - action: quote
    curve: moon
    amount: 1sol
    expect_error: complete
`))
	require.NoError(t, err)

	report, err := h.runner.Run(context.Background(), s)
	require.NoError(t, err)

	grad := report.Steps[2].Swap
	require.NotNil(t, grad)
	assert.True(t, grad.Graduated)
	assert.Equal(t, uint64(793_100_000_000_000), grad.TokenAmount)
	assert.Equal(t, uint64(85_007_359_056), grad.SolAmount)
	assert.True(t, grad.Curve.Complete)
}

func TestClock(t *testing.T) {
	c := NewClock(10)
	assert.Equal(t, int64(10), c.Now())
	assert.Equal(t, int64(15), c.Advance(5))
	c.Set(100)
	assert.Equal(t, int64(100), c.Now())
}
