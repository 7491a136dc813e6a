package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	"github.com/dcastellanos/marketbay-backend/internal/items"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type itemResponse struct {
	ID         uuid.UUID `json:"id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Name       string    `json:"name"`
	Category   int       `json:"category"`
	Condition  string    `json:"condition"`
	SalePrice  string    `json:"sale_price"`
	Quantity   int       `json:"quantity"`
	Keywords   []string  `json:"keywords"`
	ThumbsUp   int       `json:"thumbs_up"`
	ThumbsDown int       `json:"thumbs_down"`
	CreatedAt  time.Time `json:"created_at"`
}

func newItemResponse(item *models.Item) itemResponse {
	return itemResponse{
		ID:         item.ID,
		SellerID:   item.SellerID,
		Name:       item.Name,
		Category:   item.Category,
		Condition:  item.Condition.String(),
		SalePrice:  item.SalePrice.StringFixed(2),
		Quantity:   item.Quantity,
		Keywords:   item.Keywords,
		ThumbsUp:   item.ThumbsUp,
		ThumbsDown: item.ThumbsDown,
		CreatedAt:  item.CreatedAt,
	}
}

func newItemListResponse(list []models.Item) []itemResponse {
	out := make([]itemResponse, 0, len(list))
	for i := range list {
		out = append(out, newItemResponse(&list[i]))
	}
	return out
}

// ItemsSearch serves buyer-facing browse and keyword search.
func ItemsSearch(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := items.SearchFilter{}

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := validators.ParseQueryInt(r, "category", 0, 0, 1<<16)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.Category = &category
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("condition")); raw != "" {
			filter.Condition = enums.ItemCondition(raw)
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("keywords")); raw != "" {
			for _, kw := range strings.Split(raw, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					filter.Keywords = append(filter.Keywords, kw)
				}
			}
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		results, err := svc.Search(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemListResponse(results))
	}
}

// ItemFetch returns a single listing.
func ItemFetch(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a uuid"))
			return
		}

		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemResponse(item))
	}
}

type createItemRequest struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Category  int      `json:"category" validate:"min=0"`
	Condition string   `json:"condition" validate:"required,oneof=new used"`
	SalePrice string   `json:"sale_price" validate:"required"`
	Quantity  int      `json:"quantity" validate:"min=0"`
	Keywords  []string `json:"keywords" validate:"max=5,dive,min=1,max=64"`
}

// SellerCreateItem registers a new listing owned by the caller.
func SellerCreateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(body.SalePrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sale_price must be a decimal number"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		item, err := svc.Register(r.Context(), principal.ID, items.RegisterItemInput{
			Name:      body.Name,
			Category:  body.Category,
			Condition: enums.ItemCondition(body.Condition),
			SalePrice: price,
			Quantity:  body.Quantity,
			Keywords:  body.Keywords,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newItemResponse(item))
	}
}

// SellerListItems lists the caller's own listings.
func SellerListItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		list, err := svc.ListBySeller(r.Context(), principal.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemListResponse(list))
	}
}

type changePriceRequest struct {
	SalePrice string `json:"sale_price" validate:"required"`
}

// SellerChangePrice updates the sale price on a listing the caller owns.
func SellerChangePrice(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a uuid"))
			return
		}

		var body changePriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(body.SalePrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sale_price must be a decimal number"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		if err := svc.ChangePrice(r.Context(), itemID, principal.ID, price); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

type changeQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// SellerChangeQuantity sets the available quantity on a listing the caller owns.
func SellerChangeQuantity(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a uuid"))
			return
		}

		var body changeQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		if err := svc.ChangeQuantity(r.Context(), itemID, principal.ID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
