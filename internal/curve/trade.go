// =============================
// File: internal/curve/trade.go
// =============================
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

// FinalVirtualSolReserves is the virtual sol level the graduating buy is
// priced against. It is a fixed constant, independent of the config snapshot.
const FinalVirtualSolReserves uint64 = 115_005_359_056

// BuyResult is the settled outcome of a buy.
type BuyResult struct {
	TokenAmount uint64
	SolAmount   uint64
	// Graduated is true when this buy drained the real token reserves.
	Graduated bool
}

// SellResult is the settled outcome of a sell.
type SellResult struct {
	TokenAmount uint64
	SolAmount   uint64
}

// ApplyBuy settles a buy of solAmount lamports and mutates the curve.
// When the quote reaches the real token reserves the buy is clamped and
// repriced, and the curve is marked complete. On any error the curve is
// left unchanged.
func (c *BondingCurve) ApplyBuy(solAmount uint64) (BuyResult, error) {
	next := *c

	tokenAmount, err := next.GetTokensForBuySol(solAmount)
	if err != nil {
		return BuyResult{}, fmt.Errorf("apply buy: %w", err)
	}

	graduated := false
	if tokenAmount >= next.RealTokenReserves {
		tokenAmount, solAmount, err = next.settleFinalBuy()
		if err != nil {
			return BuyResult{}, fmt.Errorf("apply buy: %w", err)
		}
		next.Complete = true
		graduated = true
	}

	if next.VirtualTokenReserves, err = safemath.Sub64(next.VirtualTokenReserves, tokenAmount); err != nil {
		return BuyResult{}, arithmeticError("apply buy: virtual token reserves", err)
	}
	if next.RealTokenReserves, err = safemath.Sub64(next.RealTokenReserves, tokenAmount); err != nil {
		return BuyResult{}, arithmeticError("apply buy: real token reserves", err)
	}
	if next.VirtualSolReserves, err = safemath.Add64(next.VirtualSolReserves, solAmount); err != nil {
		return BuyResult{}, arithmeticError("apply buy: virtual sol reserves", err)
	}
	if next.RealSolReserves, err = safemath.Add64(next.RealSolReserves, solAmount); err != nil {
		return BuyResult{}, arithmeticError("apply buy: real sol reserves", err)
	}

	*c = next
	return BuyResult{TokenAmount: tokenAmount, SolAmount: solAmount, Graduated: graduated}, nil
}

// settleFinalBuy clamps the purchase to the remaining real tokens and prices
// it as a sell of that amount against the graduation level. It works on a
// copy; the receiver's reserves are not touched.
func (c *BondingCurve) settleFinalBuy() (tokenAmount, solAmount uint64, err error) {
	tokenAmount = c.RealTokenReserves

	sim := *c
	if sim.VirtualTokenReserves, err = safemath.Sub64(c.VirtualTokenReserves, tokenAmount); err != nil {
		return 0, 0, arithmeticError("final buy: virtual token reserves", err)
	}
	sim.VirtualSolReserves = FinalVirtualSolReserves

	solAmount, err = sim.GetSolForSellTokens(tokenAmount)
	if err != nil {
		return 0, 0, fmt.Errorf("final buy: %w", err)
	}
	return tokenAmount, solAmount, nil
}

// ApplySell settles a sale of tokenAmount base units and mutates the curve.
// A sale that would pay out more than the real sol reserves fails with
// ErrArithmetic. On any error the curve is left unchanged.
func (c *BondingCurve) ApplySell(tokenAmount uint64) (SellResult, error) {
	next := *c

	solAmount, err := next.GetSolForSellTokens(tokenAmount)
	if err != nil {
		return SellResult{}, fmt.Errorf("apply sell: %w", err)
	}

	if next.VirtualTokenReserves, err = safemath.Add64(next.VirtualTokenReserves, tokenAmount); err != nil {
		return SellResult{}, arithmeticError("apply sell: virtual token reserves", err)
	}
	if next.RealTokenReserves, err = safemath.Add64(next.RealTokenReserves, tokenAmount); err != nil {
		return SellResult{}, arithmeticError("apply sell: real token reserves", err)
	}
	if next.VirtualSolReserves, err = safemath.Sub64(next.VirtualSolReserves, solAmount); err != nil {
		return SellResult{}, arithmeticError("apply sell: virtual sol reserves", err)
	}
	if next.RealSolReserves, err = safemath.Sub64(next.RealSolReserves, solAmount); err != nil {
		return SellResult{}, arithmeticError("apply sell: real sol reserves", err)
	}

	*c = next
	return SellResult{TokenAmount: tokenAmount, SolAmount: solAmount}, nil
}
