// =============================
// File: internal/curve/state.go
// =============================
package curve

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BondingCurve holds the per-asset market state. Field order matches the
// on-chain account layout (see accounts.go).
type BondingCurve struct {
	Mint                        solana.PublicKey
	Creator                     solana.PublicKey
	InitialVirtualTokenReserves uint64
	VirtualSolReserves          uint64
	VirtualTokenReserves        uint64
	RealSolReserves             uint64
	RealTokenReserves           uint64
	TokenTotalSupply            uint64
	StartTime                   int64
	Complete                    bool
	Bump                        uint8
}

// NewBondingCurve seeds a fresh curve from a validated config snapshot.
// Real sol starts at zero and the curve is not complete.
func NewBondingCurve(mint, creator solana.PublicKey, cfg GlobalConfig, startTime int64, bump uint8) (*BondingCurve, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BondingCurve{
		Mint:                        mint,
		Creator:                     creator,
		InitialVirtualTokenReserves: cfg.InitialVirtualTokenReserves,
		VirtualSolReserves:          cfg.InitialVirtualSolReserves,
		VirtualTokenReserves:        cfg.InitialVirtualTokenReserves,
		RealSolReserves:             0,
		RealTokenReserves:           cfg.InitialRealTokenReserves,
		TokenTotalSupply:            cfg.TokenTotalSupply,
		StartTime:                   startTime,
		Complete:                    false,
		Bump:                        bump,
	}, nil
}

// IsStarted reports whether trading is open at unix time now.
func (c *BondingCurve) IsStarted(now int64) bool {
	return now >= c.StartTime
}

// Clone returns an independent copy.
func (c *BondingCurve) Clone() *BondingCurve {
	cp := *c
	return &cp
}

func (c *BondingCurve) String() string {
	return fmt.Sprintf(
		"BondingCurve{mint: %s, virtual_sol: %d, virtual_token: %d, real_sol: %d, real_token: %d, supply: %d, start: %d, complete: %t}",
		c.Mint, c.VirtualSolReserves, c.VirtualTokenReserves, c.RealSolReserves,
		c.RealTokenReserves, c.TokenTotalSupply, c.StartTime, c.Complete,
	)
}
