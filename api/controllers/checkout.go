package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	checkoutsvc "github.com/dcastellanos/marketbay-backend/internal/checkout"
	"github.com/dcastellanos/marketbay-backend/internal/payments"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type checkoutRequest struct {
	CardholderName string `json:"cardholder_name" validate:"required,max=100"`
	CardNumber     string `json:"card_number" validate:"required,min=12,max=19"`
	ExpiryMonth    int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear     int    `json:"expiry_year" validate:"required,min=2000"`
	CVV            string `json:"cvv" validate:"required,min=3,max=4"`
}

type checkoutResponse struct {
	Status        string    `json:"status"`
	TransactionID uuid.UUID `json:"transaction_id,omitempty"`
	PurchaseID    uuid.UUID `json:"purchase_id,omitempty"`
	Amount        string    `json:"amount"`
	ItemIDs       []string  `json:"item_ids,omitempty"`
}

// Checkout submits the buyer's saved cart for purchase.
func Checkout(coordinator checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coordinator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		sessionID := middleware.SessionIDFromContext(r.Context())

		result, err := coordinator.Checkout(r.Context(), principal.ID, sessionID, payments.Card{
			CardholderName: body.CardholderName,
			Number:         body.CardNumber,
			ExpiryMonth:    body.ExpiryMonth,
			ExpiryYear:     body.ExpiryYear,
			CVV:            body.CVV,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Status == checkoutsvc.StatusEmptyCart {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, checkoutResponse{
			Status:        string(result.Status),
			TransactionID: result.TransactionID,
			PurchaseID:    result.PurchaseID,
			Amount:        result.Amount.StringFixed(2),
			ItemIDs:       result.ItemIDs,
		})
	}
}
