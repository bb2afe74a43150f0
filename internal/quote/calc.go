// internal/quote/calc.go
package quote

import (
	"math"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

// SpotPrice возвращает цену токена в SOL по отношению виртуальных резервов.
// Формула: (VirtualSolReserves / 10^9) / (VirtualTokenReserves / 10^6)
func SpotPrice(c *curve.BondingCurve) float64 {
	if c.VirtualTokenReserves == 0 {
		return 0
	}
	virtualSol := float64(c.VirtualSolReserves) / math.Pow10(solDecimals)
	virtualToken := float64(c.VirtualTokenReserves) / math.Pow10(tokenDecimals)
	return virtualSol / virtualToken
}

// MarketCap is the spot price times the total supply, in SOL.
func MarketCap(c *curve.BondingCurve) float64 {
	return SpotPrice(c) * float64(c.TokenTotalSupply) / math.Pow10(tokenDecimals)
}

// Progress returns the sold share of the initial real token reserves in
// basis points. A complete curve is always 10000.
func Progress(c *curve.BondingCurve, initialRealTokenReserves uint64) uint64 {
	if c.Complete || initialRealTokenReserves == 0 {
		return MaxSlippageBps
	}
	if c.RealTokenReserves >= initialRealTokenReserves {
		return 0
	}
	sold := initialRealTokenReserves - c.RealTokenReserves
	bps, err := safemath.BpsMul(MaxSlippageBps, sold, initialRealTokenReserves)
	if err != nil {
		return 0
	}
	return bps
}

// Buy previews a buy of solAmount lamports on a copy of c.
func Buy(c *curve.BondingCurve, solAmount uint64, now int64) (*Quote, error) {
	after := c.Clone()
	res, err := after.ApplyBuy(solAmount)
	if err != nil {
		return nil, err
	}
	feeBps, phase, err := curve.FeeBasisPoints(c.StartTime, now)
	if err != nil {
		return nil, err
	}
	fee, err := curve.CalculateFee(c.StartTime, res.SolAmount, now)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Mint:        c.Mint,
		IsBuy:       true,
		AmountIn:    res.SolAmount,
		AmountOut:   res.TokenAmount,
		FeeLamports: fee,
		FeeBps:      feeBps,
		FeePhase:    phase,
		Graduates:   res.Graduated,
		After:       *after,
	}
	fillPrices(q, c, after)
	return q, nil
}

// Sell previews a sell of tokenAmount on a copy of c. AmountOut is the
// payout after the fee.
func Sell(c *curve.BondingCurve, tokenAmount uint64, now int64) (*Quote, error) {
	after := c.Clone()
	res, err := after.ApplySell(tokenAmount)
	if err != nil {
		return nil, err
	}
	feeBps, phase, err := curve.FeeBasisPoints(c.StartTime, now)
	if err != nil {
		return nil, err
	}
	fee, err := curve.CalculateFee(c.StartTime, res.SolAmount, now)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Mint:        c.Mint,
		AmountIn:    res.TokenAmount,
		AmountOut:   res.SolAmount - fee,
		FeeLamports: fee,
		FeeBps:      feeBps,
		FeePhase:    phase,
		After:       *after,
	}
	fillPrices(q, c, after)
	return q, nil
}

func fillPrices(q *Quote, before, after *curve.BondingCurve) {
	q.SpotPriceBefore = SpotPrice(before)
	q.SpotPriceAfter = SpotPrice(after)
	if q.SpotPriceBefore > 0 {
		q.PriceImpactPct = math.Abs(q.SpotPriceAfter-q.SpotPriceBefore) / q.SpotPriceBefore * 100
	}
}
