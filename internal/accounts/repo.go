package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
)

// Repository encapsulates buyer and seller account persistence.
type Repository struct {
	client *db.Client
}

// NewRepository constructs an accounts repository backed by the shared DB client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

// CreateBuyer inserts the buyer and their durable saved cart in one
// transaction; a buyer must never exist without a saved cart.
func (r *Repository) CreateBuyer(ctx context.Context, buyer *models.Buyer, cart *models.SavedCart) error {
	return r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(cart).Error; err != nil {
			return fmt.Errorf("insert saved cart: %w", err)
		}
		if err := tx.Create(buyer).Error; err != nil {
			return fmt.Errorf("insert buyer: %w", err)
		}
		return nil
	})
}

// CreateSeller inserts a seller account.
func (r *Repository) CreateSeller(ctx context.Context, seller *models.Seller) error {
	return r.client.DB().WithContext(ctx).Create(seller).Error
}

// FindBuyerByUsername loads a buyer for credential verification.
func (r *Repository) FindBuyerByUsername(ctx context.Context, username string) (*models.Buyer, error) {
	var buyer models.Buyer
	if err := r.client.DB().WithContext(ctx).Where("username = ?", username).First(&buyer).Error; err != nil {
		return nil, err
	}
	return &buyer, nil
}

// FindSellerByUsername loads a seller for credential verification.
func (r *Repository) FindSellerByUsername(ctx context.Context, username string) (*models.Seller, error) {
	var seller models.Seller
	if err := r.client.DB().WithContext(ctx).Where("username = ?", username).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// GetSeller loads a seller by id, feedback counters included.
func (r *Repository) GetSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.client.DB().WithContext(ctx).Where("seller_id = ?", sellerID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}
