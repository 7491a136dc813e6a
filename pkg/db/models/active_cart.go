package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

// ActiveCart is the working cart for a single session, keyed one-to-one by
// session so the cascade on the sessions table removes it with the session
// row. Created alongside the session, seeded from the buyer's saved cart at
// login.
type ActiveCart struct {
	ID        uuid.UUID       `gorm:"column:cart_id;type:uuid;primaryKey"`
	SessionID uuid.UUID       `gorm:"column:session_id;type:uuid;not null;uniqueIndex"`
	Items     types.CartItems `gorm:"column:items;type:jsonb;serializer:json;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (ActiveCart) TableName() string { return "active_carts" }
