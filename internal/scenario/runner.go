// ===================================
// File: internal/scenario/runner.go
// ===================================
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/custody"
	"github.com/rovshanmuradov/curve-engine/internal/quote"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
)

// ErrorNames maps expect_error values to the errors they match.
var ErrorNames = map[string]error{
	"unauthorized":        settlement.ErrInvalidGlobalAuthority,
	"not_running":         settlement.ErrProgramNotRunning,
	"not_whitelisted":     settlement.ErrNotWhitelisted,
	"invalid_start_time":  settlement.ErrInvalidStartTime,
	"curve_not_found":     settlement.ErrCurveNotFound,
	"not_started":         settlement.ErrCurveNotStarted,
	"complete":            settlement.ErrBondingCurveComplete,
	"zero_amount":         settlement.ErrMinSwap,
	"insufficient_sol":    settlement.ErrInsufficientUserSOL,
	"insufficient_tokens": settlement.ErrInsufficientUserTokens,
	"slippage":            settlement.ErrSlippageExceeded,
	"buy_failed":          settlement.ErrBuyFailed,
	"sell_failed":         settlement.ErrSellFailed,
	"arithmetic":          curve.ErrArithmetic,
	"invariant":           curve.ErrInvariantViolation,
	"invalid_config":      curve.ErrInvalidConfig,
}

// Clock is a settable settlement clock.
type Clock struct {
	now atomic.Int64
}

// NewClock starts the clock at unix second start.
func NewClock(start int64) *Clock {
	c := &Clock{}
	c.now.Store(start)
	return c
}

// Now is passed to the program as its settlement.Clock.
func (c *Clock) Now() int64 { return c.now.Load() }

// Set moves the clock to t.
func (c *Clock) Set(t int64) { c.now.Store(t) }

// Advance moves the clock forward by seconds.
func (c *Clock) Advance(seconds int64) int64 { return c.now.Add(seconds) }

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int
	Action Action
	Curve  string
	User   string
	Now    int64
	// Err is the step's error, expected or not.
	Err      error
	Expected bool

	Create *settlement.CreateResult
	Swap   *settlement.SwapResult
	Quote  *quote.Quote
}

// Report summarizes a run.
type Report struct {
	Name     string
	Steps    []StepResult
	Curves   map[string]solana.PublicKey
	Accounts map[string]solana.PublicKey
}

// Runner executes scenarios against a program.
type Runner struct {
	program *settlement.Program
	ledger  *custody.Ledger
	quotes  *quote.Service
	clock   *Clock
	logger  *zap.Logger

	accounts map[string]solana.PublicKey
	curves   map[string]solana.PublicKey
}

// NewRunner creates a runner. The program and quote service must read
// their time from clock.Now.
func NewRunner(program *settlement.Program, ledger *custody.Ledger, quotes *quote.Service, clock *Clock, logger *zap.Logger) *Runner {
	return &Runner{
		program:  program,
		ledger:   ledger,
		quotes:   quotes,
		clock:    clock,
		logger:   logger.Named("scenario"),
		accounts: make(map[string]solana.PublicKey),
		curves:   make(map[string]solana.PublicKey),
	}
}

// Account resolves a label, creating a fresh keypair address on first use.
func (r *Runner) Account(label string) solana.PublicKey {
	if key, ok := r.accounts[label]; ok {
		return key
	}
	key := solana.NewWallet().PublicKey()
	r.accounts[label] = key
	return key
}

// Curve resolves a curve label to its mint.
func (r *Runner) Curve(label string) (solana.PublicKey, error) {
	mint, ok := r.curves[label]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: label %q", settlement.ErrCurveNotFound, label)
	}
	return mint, nil
}

// Run executes every step. It stops at the first step whose outcome does
// not match its expectation and returns the partial report with the error.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Report, error) {
	if s.StartTime != 0 {
		r.clock.Set(s.StartTime)
	}

	global := r.program.Global()
	if s.Authority != "" {
		r.accounts[s.Authority] = global.GlobalAuthority
	}
	if s.FeeReceiver != "" {
		r.accounts[s.FeeReceiver] = global.FeeReceiver
	}

	// Шаг 1: Стартовые балансы в детерминированном порядке
	labels := make([]string, 0, len(s.Accounts))
	for label := range s.Accounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if err := r.ledger.Airdrop(r.Account(label), s.Accounts[label].Value); err != nil {
			return nil, fmt.Errorf("airdrop %s: %w", label, err)
		}
	}

	report := &Report{Name: s.Name, Curves: r.curves, Accounts: r.accounts}
	r.logger.Info("Running scenario", zap.String("name", s.Name), zap.Int("steps", len(s.Steps)))

	// Шаг 2: Шаги сценария
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := r.runStep(ctx, step)
		res.Index = i + 1
		report.Steps = append(report.Steps, res)

		if err := checkExpectation(step, res.Err); err != nil {
			r.logger.Error("Scenario step failed",
				zap.Int("step", res.Index),
				zap.String("action", string(step.Action)),
				zap.Error(err))
			return report, fmt.Errorf("step %d (%s): %w", res.Index, step.Action, err)
		}
		res.Expected = step.ExpectError != ""
		report.Steps[len(report.Steps)-1] = res
	}

	return report, nil
}

func checkExpectation(step Step, err error) error {
	if step.ExpectError == "" {
		return err
	}
	want := ErrorNames[step.ExpectError]
	if err == nil {
		return fmt.Errorf("expected %s error, step succeeded", step.ExpectError)
	}
	if !errors.Is(err, want) {
		return fmt.Errorf("expected %s error, got: %w", step.ExpectError, err)
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) StepResult {
	res := StepResult{Action: step.Action, Curve: step.Curve, User: step.User}

	switch step.Action {
	case ActionAdvance:
		res.Now = r.clock.Advance(step.Seconds + step.Slots*curve.SlotDuration)
		return res

	case ActionAirdrop:
		res.Err = r.ledger.Airdrop(r.Account(step.User), step.Amount.Value)

	case ActionCreate:
		res.Create, res.Err = r.create(ctx, step)

	case ActionBuy, ActionSell:
		res.Swap, res.Err = r.swap(ctx, step)

	case ActionQuote:
		res.Quote, res.Err = r.quote(step)

	case ActionSetParams:
		res.Err = r.setParams(ctx, step)
	}

	res.Now = r.clock.Now()
	return res
}

func (r *Runner) create(ctx context.Context, step Step) (*settlement.CreateResult, error) {
	if _, exists := r.curves[step.Curve]; exists {
		return nil, fmt.Errorf("%w: label %q", settlement.ErrCurveExists, step.Curve)
	}
	params := settlement.CreateParams{
		Creator:     r.Account(step.User),
		Name:        step.Name,
		Symbol:      step.Symbol,
		URI:         step.URI,
		Whitelisted: step.Whitelisted == nil || *step.Whitelisted,
	}
	if step.StartOffset != nil {
		start := r.clock.Now() + *step.StartOffset
		params.StartTime = &start
	}
	res, err := r.program.CreateCurve(ctx, params)
	if err != nil {
		return nil, err
	}
	r.curves[step.Curve] = res.Mint
	return res, nil
}

func (r *Runner) swap(ctx context.Context, step Step) (*settlement.SwapResult, error) {
	mint, err := r.Curve(step.Curve)
	if err != nil {
		return nil, err
	}
	user := r.Account(step.User)

	amount := step.Amount.Value
	if step.Amount.All {
		if amount, err = r.ledger.TokenBalance(user, mint); err != nil {
			return nil, err
		}
	}

	return r.program.Swap(ctx, settlement.SwapParams{
		Mint:          mint,
		User:          user,
		BaseIn:        step.Action == ActionSell,
		ExactInAmount: amount,
		MinOutAmount:  step.MinOut.Value,
	})
}

func (r *Runner) quote(step Step) (*quote.Quote, error) {
	mint, err := r.Curve(step.Curve)
	if err != nil {
		return nil, err
	}
	if step.User != "" {
		return r.quotes.QuoteSell(mint, step.Amount.Value, 0)
	}
	return r.quotes.QuoteBuy(mint, step.Amount.Value, 0)
}

func (r *Runner) setParams(ctx context.Context, step Step) error {
	authority := r.program.Global().GlobalAuthority
	if step.User != "" {
		authority = r.Account(step.User)
	}

	var settings curve.GlobalSettings
	if step.Status != "" {
		status, err := curve.ParseProgramStatus(step.Status)
		if err != nil {
			return err
		}
		settings.Status = &status
	}
	settings.WhitelistEnabled = step.WhitelistEnabled
	if step.InitialRealToken != nil {
		v := step.InitialRealToken.Value
		settings.InitialRealTokenReserves = &v
	}

	_, err := r.program.SetParams(ctx, authority, settings)
	return err
}
