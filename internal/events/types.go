// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Curve lifecycle
	CurveCreated   EventType = "curve.created"
	CurveCompleted EventType = "curve.completed"

	// Swaps
	TradeExecuted EventType = "trade.executed"
	TradeRejected EventType = "trade.rejected"

	// Program settings
	GlobalUpdated EventType = "global.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// CurveCreatedEvent is emitted once the curve, mint and custody exist.
type CurveCreatedEvent struct {
	BaseEvent
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Creator      solana.PublicKey
	Name         string
	Symbol       string
	URI          string
	StartTime    int64

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealTokenReserves    uint64
	TokenTotalSupply     uint64
}

// TradeEvent is emitted for every settled buy or sell. Reserves are
// the values after the trade.
type TradeEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	User        solana.PublicKey
	IsBuy       bool
	SolAmount   uint64
	TokenAmount uint64
	FeeLamports uint64
	// UnixTime is the settlement clock reading the fee was computed with.
	UnixTime int64

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

// TradeRejectedEvent is emitted when a swap fails validation or settlement.
type TradeRejectedEvent struct {
	BaseEvent
	Mint  solana.PublicKey
	User  solana.PublicKey
	IsBuy bool
	Error error
}

// CurveCompletedEvent is emitted by the buy that drains the real token reserves.
type CurveCompletedEvent struct {
	BaseEvent
	User         solana.PublicKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
}

// GlobalUpdatedEvent is emitted after the program settings change.
type GlobalUpdatedEvent struct {
	BaseEvent
	GlobalAuthority             solana.PublicKey
	MigrationAuthority          solana.PublicKey
	FeeReceiver                 solana.PublicKey
	Status                      string
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	MintDecimals                uint8
	MigrateFeeAmount            uint64
	WhitelistEnabled            bool
}
