package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
)

// Repository encapsulates listing persistence for seller-facing item
// management and buyer-facing search.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an items repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new listing.
func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID loads a listing.
func (r *Repository) FindByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListBySeller returns a seller's listings, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&items).
		Error
	return items, err
}

// UpdatePrice sets a listing's sale price, scoped to the owning seller.
// Returns the matched row count so the service can distinguish "not yours /
// not found" from success.
func (r *Repository) UpdatePrice(ctx context.Context, itemID, sellerID uuid.UUID, price string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("item_id = ? AND seller_id = ?", itemID, sellerID).
		Update("sale_price", price)
	if res.Error != nil {
		return 0, fmt.Errorf("update price: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateQuantity sets a listing's available quantity, scoped to the owning
// seller.
func (r *Repository) UpdateQuantity(ctx context.Context, itemID, sellerID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("item_id = ? AND seller_id = ?", itemID, sellerID).
		Update("quantity", quantity)
	if res.Error != nil {
		return 0, fmt.Errorf("update quantity: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SearchFilter narrows a listing search. Zero values mean "any".
type SearchFilter struct {
	Category  *int
	Condition enums.ItemCondition
	Keywords  []string
	Limit     int
}

const defaultSearchLimit = 50

// Search returns listings matching the filter. Keyword matching is ANY-of
// against the keywords array plus a substring match on the name.
func (r *Repository) Search(ctx context.Context, filter SearchFilter) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Condition != "" {
		query = query.Where("condition = ?", filter.Condition)
	}
	if len(filter.Keywords) > 0 {
		clauses := make([]string, 0, len(filter.Keywords)*2)
		args := make([]any, 0, len(filter.Keywords)*2)
		for _, kw := range filter.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			clauses = append(clauses, "? = ANY(keywords)", "LOWER(name) LIKE ?")
			args = append(args, kw, "%"+kw+"%")
		}
		if len(clauses) > 0 {
			query = query.Where("("+strings.Join(clauses, " OR ")+")", args...)
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	var items []models.Item
	err := query.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}
