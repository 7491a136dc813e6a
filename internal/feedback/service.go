package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type inventoryRepo interface {
	GetSellerOf(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	RecordFeedback(ctx context.Context, itemID uuid.UUID, vote enums.FeedbackVote) error
	RecordSellerFeedback(ctx context.Context, sellerID uuid.UUID, vote enums.FeedbackVote) error
}

// Result reports how far a vote propagated. SellerRecorded is false when the
// secondary seller-counter write failed; the item vote still counts.
type Result struct {
	ItemID         uuid.UUID
	SellerID       uuid.UUID
	Vote           enums.FeedbackVote
	SellerRecorded bool
}

// Service records buyer feedback on purchased items. The item counter is the
// primary write; the seller aggregate is best-effort and its failure degrades
// the result instead of failing the call.
type Service interface {
	Record(ctx context.Context, itemID uuid.UUID, vote enums.FeedbackVote) (*Result, error)
}

type service struct {
	repo   inventoryRepo
	logger *logger.Logger
}

// NewService builds the feedback service.
func NewService(repo inventoryRepo, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("feedback inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("feedback logger required")
	}
	return &service{repo: repo, logger: logg}, nil
}

func (s *service) Record(ctx context.Context, itemID uuid.UUID, vote enums.FeedbackVote) (*Result, error) {
	if !vote.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vote must be up or down")
	}

	sellerID, err := s.repo.GetSellerOf(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve item seller")
	}

	if err := s.repo.RecordFeedback(ctx, itemID, vote); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record item feedback")
	}

	result := &Result{
		ItemID:         itemID,
		SellerID:       sellerID,
		Vote:           vote,
		SellerRecorded: true,
	}

	if err := s.repo.RecordSellerFeedback(ctx, sellerID, vote); err != nil {
		ctx = s.logger.WithFields(ctx, map[string]any{
			"item_id":   itemID.String(),
			"seller_id": sellerID.String(),
			"vote":      vote.String(),
			"error":     err.Error(),
		})
		s.logger.Warn(ctx, "seller feedback counter not updated")
		result.SellerRecorded = false
	}

	return result, nil
}
