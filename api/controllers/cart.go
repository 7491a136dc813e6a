package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

type cartMutationRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

type cartResponse struct {
	Items map[string]int `json:"items"`
}

func newCartResponse(items types.CartItems) cartResponse {
	out := cartResponse{Items: make(map[string]int, len(items))}
	for id, qty := range items {
		out.Items[id.String()] = qty
	}
	return out
}

// CartFetch returns the session's active cart.
func CartFetch(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		items, err := sessions.GetActiveCart(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items))
	}
}

// CartAddItem adds quantity to an item in the active cart.
func CartAddItem(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartMutationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := sessions.AddItem(r.Context(), sessionID, body.ItemID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := sessions.GetActiveCart(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items))
	}
}

// CartRemoveItem removes quantity from an item in the active cart. Removing
// the full quantity drops the item; asking for more than is there fails
// without touching the cart.
func CartRemoveItem(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartMutationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := sessions.RemoveItem(r.Context(), sessionID, body.ItemID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := sessions.GetActiveCart(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items))
	}
}

// CartSave copies the active cart over the buyer's saved cart.
func CartSave(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := sessions.SaveCart(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "saved"})
	}
}

// CartClear empties both the active and the saved cart.
func CartClear(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := sessions.ClearBoth(r.Context(), principal.ID, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
