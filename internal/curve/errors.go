// =============================
// File: internal/curve/errors.go
// =============================
package curve

import (
	"errors"
	"fmt"
)

var (
	// ErrArithmetic covers overflow, underflow and division by zero in any
	// quote, fee or mutation step. The receiver is never mutated when it is returned.
	ErrArithmetic = errors.New("arithmetic error")

	// ErrZeroAmount is returned by quotes for a zero input amount.
	ErrZeroAmount = errors.New("amount must be greater than zero")

	// ErrInvariantViolation is the base of every *InvariantError.
	ErrInvariantViolation = errors.New("bonding curve invariant failed")

	// ErrInvalidConfig is the base of every *ConfigError.
	ErrInvalidConfig = errors.New("invalid global config")
)

func arithmeticError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrArithmetic, err)
}

// InvariantCheck names one post-mutation consistency check.
type InvariantCheck string

const (
	CheckCustodyAuthority InvariantCheck = "custody_authority"
	CheckTokenReserves    InvariantCheck = "real_token_reserves"
	CheckSolReserves      InvariantCheck = "real_sol_reserves"
	CheckVirtualReserves  InvariantCheck = "virtual_reserves"
	CheckCompletion       InvariantCheck = "completion"
	CheckCustodyFrozen    InvariantCheck = "custody_frozen"
)

// InvariantError describes which check failed and why.
type InvariantError struct {
	Check  InvariantCheck
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvariantViolation, e.Check, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

func violation(check InvariantCheck, format string, args ...interface{}) error {
	return &InvariantError{Check: check, Detail: fmt.Sprintf(format, args...)}
}

// ConfigError is returned when a GlobalConfig snapshot cannot seed a curve.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
