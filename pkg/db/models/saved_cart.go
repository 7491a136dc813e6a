package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

// SavedCart is a buyer's durable cart. Exactly one exists per buyer,
// created with the account, and it survives logout and session expiry.
type SavedCart struct {
	ID        uuid.UUID       `gorm:"column:cart_id;type:uuid;primaryKey"`
	Items     types.CartItems `gorm:"column:items;type:jsonb;serializer:json;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (SavedCart) TableName() string { return "saved_carts" }
