// =================================
// File: internal/curve/invariant.go
// =================================
package curve

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

// CustodyObservation is what the custody layer reports about a curve's
// holdings right after a mutation.
type CustodyObservation struct {
	// CurveAddress is the curve's own address; the custody token account must be owned by it.
	CurveAddress      solana.PublicKey
	TokenAccountOwner solana.PublicKey
	TokenBalance      uint64
	Lamports          uint64
	Frozen            bool
}

// CheckInvariant verifies that the curve's bookkeeping agrees with the
// custody observation. rentExemptMinimum is the lamport amount the curve
// account holds that does not belong to the reserves.
//
// Checks run in a fixed order and the first failure is returned as *InvariantError.
func CheckInvariant(c *BondingCurve, obs CustodyObservation, rentExemptMinimum uint64, initialRealTokenReserves uint64) error {
	if !obs.TokenAccountOwner.Equals(obs.CurveAddress) {
		return violation(CheckCustodyAuthority, "token account owner %s != curve %s", obs.TokenAccountOwner, obs.CurveAddress)
	}

	// The custody holds the whole supply at launch while real reserves only
	// count the sellable part. Shift the balance by the initial real
	// reserves and subtract the supply when the sum wraps past it.
	adjusted, err := safemath.W(obs.TokenBalance).Add(safemath.W(initialRealTokenReserves))
	if err != nil {
		return violation(CheckTokenReserves, "balance %d + initial real %d overflows", obs.TokenBalance, initialRealTokenReserves)
	}
	supply := safemath.W(c.TokenTotalSupply)
	if adjusted.Cmp(supply) >= 0 {
		adjusted, _ = adjusted.Sub(supply)
	}
	if adjusted.Cmp(safemath.W(c.RealTokenReserves)) != 0 {
		return violation(CheckTokenReserves, "adjusted custody balance %s != real token reserves %d", adjusted, c.RealTokenReserves)
	}

	collateral, err := safemath.Sub64(obs.Lamports, rentExemptMinimum)
	if err != nil {
		return violation(CheckSolReserves, "lamports %d below rent exempt minimum %d", obs.Lamports, rentExemptMinimum)
	}
	if collateral != c.RealSolReserves {
		return violation(CheckSolReserves, "collateral %d != real sol reserves %d", collateral, c.RealSolReserves)
	}

	if c.VirtualSolReserves == 0 || c.VirtualTokenReserves == 0 {
		return violation(CheckVirtualReserves, "virtual sol %d, virtual token %d", c.VirtualSolReserves, c.VirtualTokenReserves)
	}

	if c.Complete && c.RealTokenReserves != 0 {
		return violation(CheckCompletion, "complete with %d real tokens left", c.RealTokenReserves)
	}

	if !c.Complete && !obs.Frozen {
		return violation(CheckCustodyFrozen, "custody account of an active curve is not frozen")
	}

	return nil
}
