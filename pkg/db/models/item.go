package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dcastellanos/marketbay-backend/pkg/enums"
)

// Item is a seller listing. Quantity is guarded by a CHECK constraint so a
// concurrent decrement can never drive it below zero.
type Item struct {
	ID         uuid.UUID           `gorm:"column:item_id;type:uuid;primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Name       string              `gorm:"column:name;not null"`
	Category   int                 `gorm:"column:category;not null"`
	Condition  enums.ItemCondition `gorm:"column:condition;not null"`
	SalePrice  decimal.Decimal     `gorm:"column:sale_price;type:numeric(12,2);not null"`
	Quantity   int                 `gorm:"column:quantity;not null;check:quantity >= 0"`
	Keywords   pq.StringArray      `gorm:"column:keywords;type:text[]"`
	ThumbsUp   int                 `gorm:"column:thumbs_up;not null;default:0"`
	ThumbsDown int                 `gorm:"column:thumbs_down;not null;default:0"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Item) TableName() string { return "items" }
