package purchases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
)

// Repository persists the append-only payment and order ledgers. Rows are
// never updated or deleted once written.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a purchases repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertTransaction appends one authorization outcome.
func (r *Repository) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertPurchase appends one order row. The unique index on transaction_id
// makes a double-record of the same payment a constraint violation rather
// than a silent duplicate.
func (r *Repository) InsertPurchase(ctx context.Context, purchase *models.Purchase) error {
	if err := r.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// ListByBuyer returns a buyer's purchases, newest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return rows, nil
}
