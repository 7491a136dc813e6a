package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Purchase is a buyer's order history row, written once per successful
// authorization. TransactionID is unique so a retried saga can never record
// the same payment twice.
type Purchase struct {
	ID            uuid.UUID       `gorm:"column:purchase_id;type:uuid;primaryKey"`
	BuyerID       uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	ItemIDs       pq.StringArray  `gorm:"column:item_ids;type:text[];not null"`
	Total         decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (Purchase) TableName() string { return "purchases" }
