package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction records a payment authorization outcome. Only the last four
// digits of the card ever touch the database.
type Transaction struct {
	ID        uuid.UUID       `gorm:"column:transaction_id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index"`
	CardLast4 string          `gorm:"column:card_last4;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Approved  bool            `gorm:"column:approved;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (Transaction) TableName() string { return "transactions" }
