package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	"github.com/dcastellanos/marketbay-backend/internal/feedback"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type feedbackRequest struct {
	Vote string `json:"vote" validate:"required,oneof=up down"`
}

type feedbackResponse struct {
	ItemID         uuid.UUID `json:"item_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Vote           string    `json:"vote"`
	SellerRecorded bool      `json:"seller_recorded"`
}

// FeedbackRecord registers a thumbs vote on an item. The seller aggregate is
// best-effort; seller_recorded tells the caller whether it landed.
func FeedbackRecord(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a uuid"))
			return
		}

		var body feedbackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Record(r.Context(), itemID, enums.FeedbackVote(body.Vote))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, feedbackResponse{
			ItemID:         result.ItemID,
			SellerID:       result.SellerID,
			Vote:           result.Vote.String(),
			SellerRecorded: result.SellerRecorded,
		})
	}
}
