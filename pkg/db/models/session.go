package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/pkg/enums"
)

// Session binds an opaque bearer token to a principal. LastActiveAt only
// ever moves forward; the row is deleted on logout or lazy expiry and its
// active cart goes with it (ON DELETE CASCADE).
type Session struct {
	ID            uuid.UUID           `gorm:"column:session_id;type:uuid;primaryKey"`
	PrincipalID   uuid.UUID           `gorm:"column:principal_id;type:uuid;not null;index"`
	PrincipalKind enums.PrincipalKind `gorm:"column:principal_kind;not null"`
	LastActiveAt  time.Time           `gorm:"column:last_active_at;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (Session) TableName() string { return "sessions" }
