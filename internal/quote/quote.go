// ==============================
// File: internal/quote/quote.go
// ==============================
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
	"github.com/rovshanmuradov/curve-engine/internal/utils/metrics"
	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

const (
	solDecimals   = 9
	tokenDecimals = 6

	// MaxSlippageBps caps the tolerance a caller may request.
	MaxSlippageBps uint64 = 10_000

	defaultParallelism = 8
)

var ErrSlippageOutOfRange = errors.New("slippage out of range")

// Source отдает копию кривой по минту.
type Source interface {
	Curve(mint solana.PublicKey) (settlement.CurveInfo, error)
}

// Quote is a read-only preview of a trade. Nothing is mutated.
type Quote struct {
	Mint  solana.PublicKey
	IsBuy bool
	// AmountIn is what the trade would actually consume; a graduating buy
	// is repriced against the final virtual SOL reserves, so it can differ
	// from the requested amount.
	AmountIn  uint64
	AmountOut uint64
	// MinAmountOut applies the requested slippage to AmountOut.
	MinAmountOut uint64
	FeeLamports  uint64
	FeeBps       uint64
	FeePhase     curve.FeePhase
	Graduates    bool

	SpotPriceBefore float64
	SpotPriceAfter  float64
	PriceImpactPct  float64
	// ProgressBps is how much of the sellable supply is sold after the trade.
	ProgressBps uint64
	// After is the curve as the trade would leave it.
	After curve.BondingCurve
}

// Request is one entry of a batch.
type Request struct {
	Mint        solana.PublicKey
	IsBuy       bool
	Amount      uint64
	SlippageBps uint64
}

// Result pairs a request with its quote or error.
type Result struct {
	Request Request
	Quote   *Quote
	Err     error
}

// Service previews trades against live curves.
type Service struct {
	source      Source
	metrics     *metrics.Collector
	logger      *zap.Logger
	clock       settlement.Clock
	parallelism int
}

// NewService creates a quote service. metrics may be nil.
func NewService(source Source, collector *metrics.Collector, logger *zap.Logger, clock settlement.Clock) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = settlement.SystemClock
	}
	return &Service{
		source:      source,
		metrics:     collector,
		logger:      logger.Named("quote"),
		clock:       clock,
		parallelism: defaultParallelism,
	}
}

// SetParallelism limits how many quotes of a batch run at once.
func (s *Service) SetParallelism(n int) {
	if n > 0 {
		s.parallelism = n
	}
}

// QuoteBuy previews spending solAmount lamports on mint.
func (s *Service) QuoteBuy(mint solana.PublicKey, solAmount, slippageBps uint64) (*Quote, error) {
	return s.quote(Request{Mint: mint, IsBuy: true, Amount: solAmount, SlippageBps: slippageBps})
}

// QuoteSell previews selling tokenAmount of mint.
func (s *Service) QuoteSell(mint solana.PublicKey, tokenAmount, slippageBps uint64) (*Quote, error) {
	return s.quote(Request{Mint: mint, Amount: tokenAmount, SlippageBps: slippageBps})
}

// QuoteMany runs a batch in parallel. Per-request failures are returned in
// the results; the error is only set when ctx is cancelled.
func (s *Service) QuoteMany(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			q, err := s.quote(req)
			results[i] = Result{Request: req, Quote: q, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) quote(req Request) (*Quote, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordQuoteLatency(req.IsBuy, time.Since(start))
		}
	}()

	if req.SlippageBps > MaxSlippageBps {
		return nil, fmt.Errorf("%w: %d bps", ErrSlippageOutOfRange, req.SlippageBps)
	}

	info, err := s.source.Curve(req.Mint)
	if err != nil {
		return nil, err
	}
	if info.State.Complete {
		return nil, settlement.ErrBondingCurveComplete
	}

	var q *Quote
	if req.IsBuy {
		q, err = Buy(&info.State, req.Amount, s.clock())
	} else {
		q, err = Sell(&info.State, req.Amount, s.clock())
	}
	if err != nil {
		return nil, err
	}
	if q.MinAmountOut, err = safemath.BpsMul(MaxSlippageBps-req.SlippageBps, q.AmountOut, MaxSlippageBps); err != nil {
		return nil, fmt.Errorf("min amount out: %w", err)
	}
	q.ProgressBps = Progress(&q.After, info.InitialRealTokenReserves)

	s.logger.Debug("Quote computed",
		zap.String("mint", req.Mint.String()),
		zap.Bool("is_buy", req.IsBuy),
		zap.Uint64("amount_in", q.AmountIn),
		zap.Uint64("amount_out", q.AmountOut),
		zap.Uint64("fee_lamports", q.FeeLamports),
		zap.Float64("price_impact_pct", q.PriceImpactPct))

	return q, nil
}
