package models

import (
	"time"

	"github.com/google/uuid"
)

// Buyer is a purchasing account. Every buyer owns exactly one saved cart,
// created alongside the account and surviving across sessions.
type Buyer struct {
	ID           uuid.UUID `gorm:"column:buyer_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"column:username;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	SavedCartID  uuid.UUID `gorm:"column:saved_cart_id;type:uuid;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Buyer) TableName() string { return "buyers" }
