// =============================
// File: internal/curve/quote.go
// =============================
package curve

import (
	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

// Reserves are rescaled to whole units before the product is taken, so
// every quote loses the fractional part of each reserve. This truncation is
// part of the pricing and must not be "fixed".
const (
	solUnit   = 1_000_000_000 // lamports per SOL
	tokenUnit = 1_000_000     // base units per token (6 decimals)
)

// reserveProduct returns (vSol/1e9) * (vTok/1e6) * 1e9, truncating at each step.
func (c *BondingCurve) reserveProduct() (safemath.Wide, error) {
	sol, err := safemath.W(c.VirtualSolReserves).Div(safemath.W(solUnit))
	if err != nil {
		return safemath.Wide{}, err
	}
	tok, err := safemath.W(c.VirtualTokenReserves).Div(safemath.W(tokenUnit))
	if err != nil {
		return safemath.Wide{}, err
	}
	p, err := sol.Mul(tok)
	if err != nil {
		return safemath.Wide{}, err
	}
	return p.Mul(safemath.W(solUnit))
}

// GetTokensForBuySol quotes the tokens received for solAmount lamports.
// It does not cap the result at the real token reserves.
func (c *BondingCurve) GetTokensForBuySol(solAmount uint64) (uint64, error) {
	if solAmount == 0 {
		return 0, ErrZeroAmount
	}
	out, err := c.tokensForBuy(solAmount)
	if err != nil {
		return 0, arithmeticError("quote buy", err)
	}
	return out, nil
}

func (c *BondingCurve) tokensForBuy(solAmount uint64) (uint64, error) {
	product, err := c.reserveProduct()
	if err != nil {
		return 0, err
	}
	newSol, err := safemath.W(c.VirtualSolReserves).Add(safemath.W(solAmount))
	if err != nil {
		return 0, err
	}
	q, err := product.Div(newSol)
	if err != nil {
		return 0, err
	}
	newTok, err := q.Mul(safemath.W(tokenUnit))
	if err != nil {
		return 0, err
	}
	out, err := safemath.W(c.VirtualTokenReserves).Sub(newTok)
	if err != nil {
		return 0, err
	}
	return out.Uint64()
}

// GetSolForSellTokens quotes the lamports received for tokenAmount base units.
func (c *BondingCurve) GetSolForSellTokens(tokenAmount uint64) (uint64, error) {
	if tokenAmount == 0 {
		return 0, ErrZeroAmount
	}
	out, err := c.solForSell(tokenAmount)
	if err != nil {
		return 0, arithmeticError("quote sell", err)
	}
	return out, nil
}

func (c *BondingCurve) solForSell(tokenAmount uint64) (uint64, error) {
	product, err := c.reserveProduct()
	if err != nil {
		return 0, err
	}
	newTok, err := safemath.W(c.VirtualTokenReserves).Add(safemath.W(tokenAmount))
	if err != nil {
		return 0, err
	}
	q, err := product.Div(newTok)
	if err != nil {
		return 0, err
	}
	// scaled by the token unit, not the sol unit
	newSol, err := q.Mul(safemath.W(tokenUnit))
	if err != nil {
		return 0, err
	}
	out, err := safemath.W(c.VirtualSolReserves).Sub(newSol)
	if err != nil {
		return 0, err
	}
	return out.Uint64()
}
