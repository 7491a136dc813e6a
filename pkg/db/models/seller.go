package models

import (
	"time"

	"github.com/google/uuid"
)

// Seller is a vending account with aggregate feedback counters.
type Seller struct {
	ID           uuid.UUID `gorm:"column:seller_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"column:username;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	ThumbsUp     int       `gorm:"column:thumbs_up;not null;default:0"`
	ThumbsDown   int       `gorm:"column:thumbs_down;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Seller) TableName() string { return "sellers" }
