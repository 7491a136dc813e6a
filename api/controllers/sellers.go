package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type sellerRatingResponse struct {
	SellerID   uuid.UUID `json:"seller_id"`
	ThumbsUp   int       `json:"thumbs_up"`
	ThumbsDown int       `json:"thumbs_down"`
}

// SellerRating returns a seller's aggregate thumbs counters.
func SellerRating(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := uuid.Parse(chi.URLParam(r, "sellerId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be a uuid"))
			return
		}

		rating, err := svc.GetSellerRating(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sellerRatingResponse{
			SellerID:   rating.SellerID,
			ThumbsUp:   rating.ThumbsUp,
			ThumbsDown: rating.ThumbsDown,
		})
	}
}
