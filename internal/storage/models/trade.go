// internal/storage/models/trade.go
package models

type Trade struct {
	BaseModel
	TradeID     string `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Mint        string `gorm:"index;not null;type:varchar(44)"`
	User        string `gorm:"index;not null;type:varchar(44)"`
	IsBuy       bool   `gorm:"not null"`
	SolAmount   U64    `gorm:"not null;type:varchar(20)"`
	TokenAmount U64    `gorm:"not null;type:varchar(20)"`
	FeeLamports U64    `gorm:"not null;type:varchar(20)"`
	UnixTime    int64  `gorm:"index;not null"`
	Graduated   bool   `gorm:"not null;default:false"`

	VirtualSolReserves   U64 `gorm:"not null;type:varchar(20)"`
	VirtualTokenReserves U64 `gorm:"not null;type:varchar(20)"`
	RealSolReserves      U64 `gorm:"not null;type:varchar(20)"`
	RealTokenReserves    U64 `gorm:"not null;type:varchar(20)"`
}

// Side returns "buy" or "sell".
func (t *Trade) Side() string {
	if t.IsBuy {
		return "buy"
	}
	return "sell"
}
