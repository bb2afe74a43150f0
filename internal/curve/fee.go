// =============================
// File: internal/curve/fee.go
// =============================
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curve-engine/internal/utils/safemath"
)

// Fee schedule. Time since launch is measured in slots of SlotDuration
// timestamp units (unix seconds on the settlement clock).
const (
	SlotDuration       int64  = 400
	BasisPointsDivisor uint64 = 10_000

	launchPhaseEndSlot = 150
	decayPhaseEndSlot  = 250

	launchFeeBps uint64 = 9_900
	steadyFeeBps uint64 = 100

	// bps = (slope*slot + intercept) / scale during the decay phase
	decaySlope     int64 = -8_300_000
	decayIntercept int64 = 2_162_600_000
	decayScale     int64 = 1_000_000
)

// FeePhase identifies which part of the schedule applies.
type FeePhase int

const (
	FeePhaseLaunch FeePhase = iota
	FeePhaseDecay
	FeePhaseSteady
)

func (p FeePhase) String() string {
	switch p {
	case FeePhaseLaunch:
		return "launch"
	case FeePhaseDecay:
		return "decay"
	case FeePhaseSteady:
		return "steady"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// SlotsPassed returns (now-start)/400, truncated toward zero.
func SlotsPassed(startTime, now int64) (int64, error) {
	elapsed, err := safemath.SubInt64(now, startTime)
	if err != nil {
		return 0, arithmeticError("slots passed", err)
	}
	slots, err := safemath.DivInt64(elapsed, SlotDuration)
	if err != nil {
		return 0, arithmeticError("slots passed", err)
	}
	return slots, nil
}

// FeeBasisPoints returns the fee rate at now for a curve launched at startTime.
// A negative slot count (now before start) falls into the launch phase.
func FeeBasisPoints(startTime, now int64) (uint64, FeePhase, error) {
	slots, err := SlotsPassed(startTime, now)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case slots < launchPhaseEndSlot:
		return launchFeeBps, FeePhaseLaunch, nil
	case slots > decayPhaseEndSlot:
		return steadyFeeBps, FeePhaseSteady, nil
	}

	bps, err := decayBps(slots)
	if err != nil {
		return 0, 0, arithmeticError("fee decay", err)
	}
	return bps, FeePhaseDecay, nil
}

func decayBps(slots int64) (uint64, error) {
	v, err := safemath.MulInt64(decaySlope, slots)
	if err != nil {
		return 0, err
	}
	if v, err = safemath.AddInt64(v, decayIntercept); err != nil {
		return 0, err
	}
	if v, err = safemath.DivInt64(v, decayScale); err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, safemath.ErrUnderflow
	}
	return uint64(v), nil
}

// CalculateFee returns the fee charged on amount at time now.
func CalculateFee(startTime int64, amount uint64, now int64) (uint64, error) {
	bps, _, err := FeeBasisPoints(startTime, now)
	if err != nil {
		return 0, err
	}
	fee, err := safemath.BpsMul(bps, amount, BasisPointsDivisor)
	if err != nil {
		return 0, arithmeticError("fee", err)
	}
	return fee, nil
}

// CalculateFee is the fee on amount for this curve at time now.
func (c *BondingCurve) CalculateFee(amount uint64, now int64) (uint64, error) {
	return CalculateFee(c.StartTime, amount, now)
}
