package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
)

const maxKeywords = 5

type repository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error)
	UpdatePrice(ctx context.Context, itemID, sellerID uuid.UUID, price string) (int64, error)
	UpdateQuantity(ctx context.Context, itemID, sellerID uuid.UUID, quantity int) (int64, error)
	Search(ctx context.Context, filter SearchFilter) ([]models.Item, error)
}

// RegisterItemInput captures a new listing.
type RegisterItemInput struct {
	Name      string
	Category  int
	Condition enums.ItemCondition
	SalePrice decimal.Decimal
	Quantity  int
	Keywords  []string
}

// Service exposes listing management and search.
type Service interface {
	Register(ctx context.Context, sellerID uuid.UUID, input RegisterItemInput) (*models.Item, error)
	Get(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error)
	ChangePrice(ctx context.Context, itemID, sellerID uuid.UUID, price decimal.Decimal) error
	ChangeQuantity(ctx context.Context, itemID, sellerID uuid.UUID, quantity int) error
	Search(ctx context.Context, filter SearchFilter) ([]models.Item, error)
}

type service struct {
	repo repository
}

// NewService builds the items service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Register(ctx context.Context, sellerID uuid.UUID, input RegisterItemInput) (*models.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item condition")
	}
	if input.SalePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot be negative")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	keywords := make([]string, 0, len(input.Keywords))
	for _, kw := range input.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	if len(keywords) > maxKeywords {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d keywords allowed", maxKeywords))
	}

	item := &models.Item{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Name:      name,
		Category:  input.Category,
		Condition: input.Condition,
		SalePrice: input.SalePrice,
		Quantity:  input.Quantity,
		Keywords:  pq.StringArray(keywords),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error) {
	items, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller items")
	}
	return items, nil
}

func (s *service) ChangePrice(ctx context.Context, itemID, sellerID uuid.UUID, price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot be negative")
	}
	affected, err := s.repo.UpdatePrice(ctx, itemID, sellerID, price.StringFixed(2))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price")
	}
	if affected == 0 {
		return s.ownershipError(ctx, itemID)
	}
	return nil
}

func (s *service) ChangeQuantity(ctx context.Context, itemID, sellerID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	affected, err := s.repo.UpdateQuantity(ctx, itemID, sellerID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quantity")
	}
	if affected == 0 {
		return s.ownershipError(ctx, itemID)
	}
	return nil
}

func (s *service) Search(ctx context.Context, filter SearchFilter) ([]models.Item, error) {
	if filter.Condition != "" && !filter.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item condition")
	}
	if len(filter.Keywords) > maxKeywords {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d keywords allowed", maxKeywords))
	}
	items, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search items")
	}
	return items, nil
}

// ownershipError reports whether a zero-row edit missed because the listing
// does not exist or because it belongs to another seller.
func (s *service) ownershipError(ctx context.Context, itemID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "item belongs to another seller")
}
