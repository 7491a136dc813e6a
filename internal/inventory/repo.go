package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
)

// ErrInsufficientStock signals that a conditional decrement found fewer units
// than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository exposes the inventory primitives the checkout saga and the
// feedback flow depend on. The quantity field is shared mutable state across
// independent request flows, so every write here is a single conditional
// statement.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an inventory repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetItem loads a listing by id.
func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetQuantity returns the available units for a listing.
func (r *Repository) GetQuantity(ctx context.Context, itemID uuid.UUID) (int, error) {
	var row struct {
		Quantity int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("quantity").
		Where("item_id = ?", itemID).
		First(&row).
		Error
	if err != nil {
		return 0, err
	}
	return row.Quantity, nil
}

// GetSellerOf returns the seller that owns a listing.
func (r *Repository) GetSellerOf(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var row struct {
		SellerID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("seller_id").
		Where("item_id = ?", itemID).
		First(&row).
		Error
	if err != nil {
		return uuid.Nil, err
	}
	return row.SellerID, nil
}

// DecrementQuantity subtracts `by` units iff at least that many remain, in
// one check-and-subtract statement. A blind subtract here would let two
// racing purchases both succeed against the last unit. The seller guard
// refuses the write when the listing changed hands since the caller read it.
// Returns the remaining quantity, ErrInsufficientStock when outbid, or
// gorm.ErrRecordNotFound when the listing does not exist.
func (r *Repository) DecrementQuantity(ctx context.Context, itemID, sellerID uuid.UUID, by int) (int, error) {
	if by <= 0 {
		return 0, fmt.Errorf("decrement must be positive, got %d", by)
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE items
		SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE item_id = ? AND seller_id = ? AND quantity >= ?`,
		by, itemID, sellerID, by,
	)
	if res.Error != nil {
		return 0, fmt.Errorf("decrement quantity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// distinguish sold-out from unknown item
		remaining, err := r.GetQuantity(ctx, itemID)
		if err != nil {
			return 0, err
		}
		return remaining, ErrInsufficientStock
	}

	remaining, err := r.GetQuantity(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// RecordFeedback bumps the item's thumb counters by vote.
func (r *Repository) RecordFeedback(ctx context.Context, itemID uuid.UUID, vote enums.FeedbackVote) error {
	column := "thumbs_up"
	if vote == enums.FeedbackVoteDown {
		column = "thumbs_down"
	}
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("item_id = ?", itemID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return fmt.Errorf("record item feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordSellerFeedback bumps the owning seller's counters. Kept separate so
// the feedback service can treat it as a best-effort secondary write.
func (r *Repository) RecordSellerFeedback(ctx context.Context, sellerID uuid.UUID, vote enums.FeedbackVote) error {
	column := "thumbs_up"
	if vote == enums.FeedbackVoteDown {
		column = "thumbs_down"
	}
	res := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("seller_id = ?", sellerID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return fmt.Errorf("record seller feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
