// internal/utils/safemath/safemath.go
package safemath

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// WideBits is the width every Wide intermediate is bounded to.
const WideBits = 128

// Wide is an unsigned 128-bit intermediate. It is backed by a 256-bit
// integer so that overflow past 128 bits is detected instead of wrapping.
type Wide struct {
	v uint256.Int
}

// W widens a uint64.
func W(x uint64) Wide {
	var w Wide
	w.v.SetUint64(x)
	return w
}

func (a Wide) fits() bool {
	return a.v.BitLen() <= WideBits
}

// Add returns a+b or ErrOverflow.
func (a Wide) Add(b Wide) (Wide, error) {
	var r Wide
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow || !r.fits() {
		return Wide{}, ErrOverflow
	}
	return r, nil
}

// Sub returns a-b or ErrUnderflow.
func (a Wide) Sub(b Wide) (Wide, error) {
	var r Wide
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Wide{}, ErrUnderflow
	}
	return r, nil
}

// Mul returns a*b or ErrOverflow.
func (a Wide) Mul(b Wide) (Wide, error) {
	var r Wide
	if _, overflow := r.v.MulOverflow(&a.v, &b.v); overflow || !r.fits() {
		return Wide{}, ErrOverflow
	}
	return r, nil
}

// Div returns floor(a/b) or ErrDivisionByZero.
func (a Wide) Div(b Wide) (Wide, error) {
	if b.v.IsZero() {
		return Wide{}, ErrDivisionByZero
	}
	var r Wide
	r.v.Div(&a.v, &b.v)
	return r, nil
}

// Uint64 narrows back to 64 bits.
func (a Wide) Uint64() (uint64, error) {
	if !a.v.IsUint64() {
		return 0, ErrOverflow
	}
	return a.v.Uint64(), nil
}

func (a Wide) Cmp(b Wide) int {
	return a.v.Cmp(&b.v)
}

func (a Wide) IsZero() bool {
	return a.v.IsZero()
}

func (a Wide) String() string {
	return a.v.Dec()
}

// Add64 is a checked uint64 addition.
func Add64(a, b uint64) (uint64, error) {
	r, err := W(a).Add(W(b))
	if err != nil {
		return 0, err
	}
	return r.Uint64()
}

// Sub64 is a checked uint64 subtraction.
func Sub64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// BpsMul computes floor(value * bps / divisor) with a 128-bit intermediate.
func BpsMul(bps, value, divisor uint64) (uint64, error) {
	product, err := W(value).Mul(W(bps))
	if err != nil {
		return 0, err
	}
	q, err := product.Div(W(divisor))
	if err != nil {
		return 0, err
	}
	return q.Uint64()
}

// SubInt64 is a checked int64 subtraction.
func SubInt64(a, b int64) (int64, error) {
	r := a - b
	if (b > 0 && r > a) || (b < 0 && r < a) {
		return 0, ErrOverflow
	}
	return r, nil
}

// AddInt64 is a checked int64 addition.
func AddInt64(a, b int64) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, ErrOverflow
	}
	return r, nil
}

// MulInt64 is a checked int64 multiplication.
func MulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, ErrOverflow
	}
	r := a * b
	if r/b != a {
		return 0, ErrOverflow
	}
	return r, nil
}

// DivInt64 is a checked int64 division truncating toward zero.
func DivInt64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == math.MinInt64 && b == -1 {
		return 0, ErrOverflow
	}
	return a / b, nil
}
