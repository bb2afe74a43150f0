// =====================================
// File: internal/settlement/errors.go
// =====================================
package settlement

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGlobalAuthority = errors.New("invalid global authority")
	ErrProgramNotRunning      = errors.New("program is not in running state")
	ErrNotWhitelisted         = errors.New("creator is not whitelisted")
	ErrInvalidStartTime       = errors.New("start time is in the future")
	ErrCurveExists            = errors.New("bonding curve already exists")
	ErrCurveNotFound          = errors.New("bonding curve not found")
	ErrCurveNotStarted        = errors.New("curve not started")
	ErrBondingCurveComplete   = errors.New("bonding curve complete")
	ErrMinSwap                = errors.New("swap exact in amount is 0")
	ErrInsufficientUserSOL    = errors.New("insufficient user SOL")
	ErrInsufficientUserTokens = errors.New("insufficient user tokens")
	ErrSlippageExceeded       = errors.New("slippage exceeded")
	ErrBuyFailed              = errors.New("buy failed")
	ErrSellFailed             = errors.New("sell failed")
)

// SlippageError carries the amounts that failed the min-out bound.
type SlippageError struct {
	IsBuy     bool
	Received  uint64
	MinAmount uint64
}

func (e *SlippageError) Error() string {
	unit := "lamports"
	if e.IsBuy {
		unit = "tokens"
	}
	return fmt.Sprintf("%s: would receive %d %s, minimum %d", ErrSlippageExceeded, e.Received, unit, e.MinAmount)
}

func (e *SlippageError) Unwrap() error {
	return ErrSlippageExceeded
}
