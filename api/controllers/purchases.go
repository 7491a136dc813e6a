package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/internal/purchases"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type purchaseResponse struct {
	PurchaseID    uuid.UUID `json:"purchase_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ItemIDs       []string  `json:"item_ids"`
	Total         string    `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

// PurchaseHistory lists the caller's purchases, newest first.
func PurchaseHistory(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		history, err := svc.History(r.Context(), principal.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]purchaseResponse, 0, len(history))
		for _, row := range history {
			out = append(out, purchaseResponse{
				PurchaseID:    row.PurchaseID,
				TransactionID: row.TransactionID,
				ItemIDs:       row.ItemIDs,
				Total:         row.Total.StringFixed(2),
				CreatedAt:     row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
