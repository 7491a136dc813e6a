package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
)

type repository interface {
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	InsertPurchase(ctx context.Context, purchase *models.Purchase) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Purchase, error)
}

// PurchaseDTO is one row of a buyer's order history.
type PurchaseDTO struct {
	PurchaseID    uuid.UUID
	TransactionID uuid.UUID
	ItemIDs       []string
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// Service exposes the payment and order ledgers. Writes are driven by the
// checkout coordinator; reads serve buyer history.
type Service interface {
	RecordTransaction(ctx context.Context, buyerID uuid.UUID, cardLast4 string, amount decimal.Decimal, approved bool) (uuid.UUID, error)
	RecordPurchase(ctx context.Context, buyerID, transactionID uuid.UUID, itemIDs []string, total decimal.Decimal) (uuid.UUID, error)
	History(ctx context.Context, buyerID uuid.UUID) ([]PurchaseDTO, error)
}

type service struct {
	repo repository
}

// NewService builds the purchases service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordTransaction(ctx context.Context, buyerID uuid.UUID, cardLast4 string, amount decimal.Decimal, approved bool) (uuid.UUID, error) {
	txn := &models.Transaction{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		CardLast4: cardLast4,
		Amount:    amount,
		Approved:  approved,
	}
	if err := s.repo.InsertTransaction(ctx, txn); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
	}
	return txn.ID, nil
}

func (s *service) RecordPurchase(ctx context.Context, buyerID, transactionID uuid.UUID, itemIDs []string, total decimal.Decimal) (uuid.UUID, error) {
	if transactionID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase requires a transaction id")
	}
	purchase := &models.Purchase{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		TransactionID: transactionID,
		ItemIDs:       itemIDs,
		Total:         total,
	}
	if err := s.repo.InsertPurchase(ctx, purchase); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
	}
	return purchase.ID, nil
}

func (s *service) History(ctx context.Context, buyerID uuid.UUID) ([]PurchaseDTO, error) {
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase history")
	}
	history := make([]PurchaseDTO, 0, len(rows))
	for _, row := range rows {
		history = append(history, PurchaseDTO{
			PurchaseID:    row.ID,
			TransactionID: row.TransactionID,
			ItemIDs:       row.ItemIDs,
			Total:         row.Total,
			CreatedAt:     row.CreatedAt,
		})
	}
	return history, nil
}
