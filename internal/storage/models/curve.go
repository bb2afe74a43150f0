// internal/storage/models/curve.go
package models

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
)

// Curve is the latest persisted snapshot of one bonding curve.
type Curve struct {
	BaseModel
	Mint         string `gorm:"uniqueIndex;not null;type:varchar(44)"`
	BondingCurve string `gorm:"not null;type:varchar(44)"`
	Creator      string `gorm:"index;not null;type:varchar(44)"`
	Name         string `gorm:"type:varchar(64)"`
	Symbol       string `gorm:"type:varchar(16)"`
	URI          string `gorm:"type:text"`

	InitialVirtualTokenReserves U64   `gorm:"not null;type:varchar(20)"`
	InitialRealTokenReserves    U64   `gorm:"not null;type:varchar(20)"`
	VirtualSolReserves          U64   `gorm:"not null;type:varchar(20)"`
	VirtualTokenReserves        U64   `gorm:"not null;type:varchar(20)"`
	RealSolReserves             U64   `gorm:"not null;type:varchar(20)"`
	RealTokenReserves           U64   `gorm:"not null;type:varchar(20)"`
	TokenTotalSupply            U64   `gorm:"not null;type:varchar(20)"`
	StartTime                   int64 `gorm:"not null"`
	Complete                    bool  `gorm:"index;not null;default:false"`
	Bump                        uint8
}

// NewCurve builds a row from live state. initialRealTokenReserves is the
// seed value the curve was created with.
func NewCurve(address solana.PublicKey, c *curve.BondingCurve, initialRealTokenReserves uint64) *Curve {
	return &Curve{
		Mint:                        c.Mint.String(),
		BondingCurve:                address.String(),
		Creator:                     c.Creator.String(),
		InitialVirtualTokenReserves: U64(c.InitialVirtualTokenReserves),
		InitialRealTokenReserves:    U64(initialRealTokenReserves),
		VirtualSolReserves:          U64(c.VirtualSolReserves),
		VirtualTokenReserves:        U64(c.VirtualTokenReserves),
		RealSolReserves:             U64(c.RealSolReserves),
		RealTokenReserves:           U64(c.RealTokenReserves),
		TokenTotalSupply:            U64(c.TokenTotalSupply),
		StartTime:                   c.StartTime,
		Complete:                    c.Complete,
		Bump:                        c.Bump,
	}
}

// State converts the row back into curve state.
func (m *Curve) State() (*curve.BondingCurve, error) {
	mint, err := solana.PublicKeyFromBase58(m.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", m.Mint, err)
	}
	creator, err := solana.PublicKeyFromBase58(m.Creator)
	if err != nil {
		return nil, fmt.Errorf("invalid creator %q: %w", m.Creator, err)
	}
	return &curve.BondingCurve{
		Mint:                        mint,
		Creator:                     creator,
		InitialVirtualTokenReserves: uint64(m.InitialVirtualTokenReserves),
		VirtualSolReserves:          uint64(m.VirtualSolReserves),
		VirtualTokenReserves:        uint64(m.VirtualTokenReserves),
		RealSolReserves:             uint64(m.RealSolReserves),
		RealTokenReserves:           uint64(m.RealTokenReserves),
		TokenTotalSupply:            uint64(m.TokenTotalSupply),
		StartTime:                   m.StartTime,
		Complete:                    m.Complete,
		Bump:                        m.Bump,
	}, nil
}
