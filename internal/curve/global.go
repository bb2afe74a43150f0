// =============================
// File: internal/curve/global.go
// =============================
package curve

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ProgramStatus gates launches and swaps program-wide.
type ProgramStatus uint8

const (
	StatusRunning ProgramStatus = iota
	StatusSwapOnly
	StatusSwapOnlyNoLaunch
	StatusPaused
)

func (s ProgramStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSwapOnly:
		return "swap_only"
	case StatusSwapOnlyNoLaunch:
		return "swap_only_no_launch"
	case StatusPaused:
		return "paused"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ParseProgramStatus accepts the String() form, case-insensitive.
func ParseProgramStatus(raw string) (ProgramStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "running":
		return StatusRunning, nil
	case "swap_only", "swaponly":
		return StatusSwapOnly, nil
	case "swap_only_no_launch", "swaponlynolaunch":
		return StatusSwapOnlyNoLaunch, nil
	case "paused":
		return StatusPaused, nil
	default:
		return 0, fmt.Errorf("unknown program status %q", raw)
	}
}

// CanLaunch reports whether new curves may be created.
func (s ProgramStatus) CanLaunch() bool {
	return s == StatusRunning
}

// CanSwap reports whether existing curves may trade.
func (s ProgramStatus) CanSwap() bool {
	return s != StatusPaused
}

// GlobalConfig is an immutable snapshot of the program-wide settings that
// seed every new curve. Field order matches the on-chain Global account.
type GlobalConfig struct {
	Status             ProgramStatus
	Initialized        bool
	GlobalAuthority    solana.PublicKey // can update settings
	MigrationAuthority solana.PublicKey // can migrate
	MigrateFeeAmount   uint64
	FeeReceiver        solana.PublicKey

	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	MintDecimals                uint8

	MeteoraConfig    solana.PublicKey
	WhitelistEnabled bool
}

// DefaultGlobalConfig returns the pump.fun launch parameters.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Status:                      StatusRunning,
		Initialized:                 true,
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:            1_000_000_000_000_000,
		MintDecimals:                6,
		MigrateFeeAmount:            500,
		WhitelistEnabled:            true,
	}
}

// Validate rejects snapshots that cannot seed a curve.
func (g GlobalConfig) Validate() error {
	switch {
	case g.MintDecimals == 0:
		return &ConfigError{Field: "mint_decimals", Reason: "must be greater than zero"}
	case g.TokenTotalSupply == 0:
		return &ConfigError{Field: "token_total_supply", Reason: "must be greater than zero"}
	case g.InitialVirtualSolReserves < solUnit:
		// below one whole unit the reserve product truncates to zero
		return &ConfigError{Field: "initial_virtual_sol_reserves", Reason: fmt.Sprintf("must be at least %d", uint64(solUnit))}
	case g.InitialVirtualTokenReserves < tokenUnit:
		return &ConfigError{Field: "initial_virtual_token_reserves", Reason: fmt.Sprintf("must be at least %d", uint64(tokenUnit))}
	case g.InitialRealTokenReserves == 0:
		return &ConfigError{Field: "initial_real_token_reserves", Reason: "must be greater than zero"}
	case g.InitialRealTokenReserves >= g.InitialVirtualTokenReserves:
		return &ConfigError{Field: "initial_real_token_reserves", Reason: "must be below initial_virtual_token_reserves"}
	case g.InitialRealTokenReserves > g.TokenTotalSupply:
		return &ConfigError{Field: "initial_real_token_reserves", Reason: "must not exceed token_total_supply"}
	}
	return nil
}

// GlobalSettings is a partial update; nil fields are left unchanged.
type GlobalSettings struct {
	InitialVirtualTokenReserves *uint64
	InitialVirtualSolReserves   *uint64
	InitialRealTokenReserves    *uint64
	TokenTotalSupply            *uint64
	MintDecimals                *uint8
	MigrateFeeAmount            *uint64
	FeeReceiver                 *solana.PublicKey
	Status                      *ProgramStatus
	WhitelistEnabled            *bool
	MeteoraConfig               *solana.PublicKey
}

// WithSettings returns a new snapshot with the non-nil settings applied.
// The receiver is left untouched; curves created earlier keep their seed values.
func (g GlobalConfig) WithSettings(s GlobalSettings) GlobalConfig {
	next := g
	if s.MintDecimals != nil {
		next.MintDecimals = *s.MintDecimals
	}
	if s.Status != nil {
		next.Status = *s.Status
	}
	if s.InitialVirtualTokenReserves != nil {
		next.InitialVirtualTokenReserves = *s.InitialVirtualTokenReserves
	}
	if s.InitialVirtualSolReserves != nil {
		next.InitialVirtualSolReserves = *s.InitialVirtualSolReserves
	}
	if s.InitialRealTokenReserves != nil {
		next.InitialRealTokenReserves = *s.InitialRealTokenReserves
	}
	if s.TokenTotalSupply != nil {
		next.TokenTotalSupply = *s.TokenTotalSupply
	}
	if s.MigrateFeeAmount != nil {
		next.MigrateFeeAmount = *s.MigrateFeeAmount
	}
	if s.FeeReceiver != nil {
		next.FeeReceiver = *s.FeeReceiver
	}
	if s.WhitelistEnabled != nil {
		next.WhitelistEnabled = *s.WhitelistEnabled
	}
	if s.MeteoraConfig != nil {
		next.MeteoraConfig = *s.MeteoraConfig
	}
	return next
}

// WithAuthorities returns a new snapshot with the given authorities replaced.
func (g GlobalConfig) WithAuthorities(globalAuthority, migrationAuthority *solana.PublicKey) GlobalConfig {
	next := g
	if globalAuthority != nil {
		next.GlobalAuthority = *globalAuthority
	}
	if migrationAuthority != nil {
		next.MigrationAuthority = *migrationAuthority
	}
	return next
}
