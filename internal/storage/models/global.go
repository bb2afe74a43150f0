// internal/storage/models/global.go
package models

import "github.com/rovshanmuradov/curve-engine/internal/curve"

// GlobalSnapshot records every program settings change.
type GlobalSnapshot struct {
	BaseModel
	Status                      string `gorm:"not null;type:varchar(32)"`
	GlobalAuthority             string `gorm:"type:varchar(44)"`
	MigrationAuthority          string `gorm:"type:varchar(44)"`
	FeeReceiver                 string `gorm:"type:varchar(44)"`
	MeteoraConfig               string `gorm:"type:varchar(44)"`
	MigrateFeeAmount            U64    `gorm:"not null;type:varchar(20)"`
	InitialVirtualTokenReserves U64    `gorm:"not null;type:varchar(20)"`
	InitialVirtualSolReserves   U64    `gorm:"not null;type:varchar(20)"`
	InitialRealTokenReserves    U64    `gorm:"not null;type:varchar(20)"`
	TokenTotalSupply            U64    `gorm:"not null;type:varchar(20)"`
	MintDecimals                uint8
	WhitelistEnabled            bool
}

// NewGlobalSnapshot builds a row from a config snapshot.
func NewGlobalSnapshot(cfg curve.GlobalConfig) *GlobalSnapshot {
	return &GlobalSnapshot{
		Status:                      cfg.Status.String(),
		GlobalAuthority:             cfg.GlobalAuthority.String(),
		MigrationAuthority:          cfg.MigrationAuthority.String(),
		FeeReceiver:                 cfg.FeeReceiver.String(),
		MeteoraConfig:               cfg.MeteoraConfig.String(),
		MigrateFeeAmount:            U64(cfg.MigrateFeeAmount),
		InitialVirtualTokenReserves: U64(cfg.InitialVirtualTokenReserves),
		InitialVirtualSolReserves:   U64(cfg.InitialVirtualSolReserves),
		InitialRealTokenReserves:    U64(cfg.InitialRealTokenReserves),
		TokenTotalSupply:            U64(cfg.TokenTotalSupply),
		MintDecimals:                cfg.MintDecimals,
		WhitelistEnabled:            cfg.WhitelistEnabled,
	}
}
