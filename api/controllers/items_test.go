package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastellanos/marketbay-backend/internal/items"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
)

type stubItemsService struct {
	registerFn       func(ctx context.Context, sellerID uuid.UUID, input items.RegisterItemInput) (*models.Item, error)
	getFn            func(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	listBySellerFn   func(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error)
	changePriceFn    func(ctx context.Context, itemID, sellerID uuid.UUID, price decimal.Decimal) error
	changeQuantityFn func(ctx context.Context, itemID, sellerID uuid.UUID, quantity int) error
	searchFn         func(ctx context.Context, filter items.SearchFilter) ([]models.Item, error)
}

func (s *stubItemsService) Register(ctx context.Context, sellerID uuid.UUID, input items.RegisterItemInput) (*models.Item, error) {
	return s.registerFn(ctx, sellerID, input)
}

func (s *stubItemsService) Get(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	return s.getFn(ctx, itemID)
}

func (s *stubItemsService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error) {
	return s.listBySellerFn(ctx, sellerID)
}

func (s *stubItemsService) ChangePrice(ctx context.Context, itemID, sellerID uuid.UUID, price decimal.Decimal) error {
	return s.changePriceFn(ctx, itemID, sellerID, price)
}

func (s *stubItemsService) ChangeQuantity(ctx context.Context, itemID, sellerID uuid.UUID, quantity int) error {
	return s.changeQuantityFn(ctx, itemID, sellerID, quantity)
}

func (s *stubItemsService) Search(ctx context.Context, filter items.SearchFilter) ([]models.Item, error) {
	return s.searchFn(ctx, filter)
}

func sampleItem(sellerID uuid.UUID) models.Item {
	return models.Item{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Name:      "Base Set Charizard",
		Category:  3,
		Condition: enums.ItemConditionUsed,
		SalePrice: decimal.RequireFromString("149.99"),
		Quantity:  1,
		Keywords:  []string{"charizard", "holo"},
	}
}

func sellerPrincipal() *session.Principal {
	return &session.Principal{ID: uuid.New(), Kind: enums.PrincipalKindSeller}
}

func TestItemsSearchParsesFilter(t *testing.T) {
	var captured items.SearchFilter
	svc := &stubItemsService{
		searchFn: func(_ context.Context, filter items.SearchFilter) ([]models.Item, error) {
			captured = filter
			return []models.Item{sampleItem(uuid.New())}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items?category=3&condition=used&keywords=charizard,%20holo&limit=25", nil)
	rec := httptest.NewRecorder()

	ItemsSearch(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Category == nil || *captured.Category != 3 {
		t.Fatalf("category not parsed: %+v", captured)
	}
	if captured.Condition != enums.ItemConditionUsed || captured.Limit != 25 {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if len(captured.Keywords) != 2 || captured.Keywords[1] != "holo" {
		t.Fatalf("keywords not split: %v", captured.Keywords)
	}
}

func TestItemsSearchRejectsOversizedLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items?limit=5000", nil)
	rec := httptest.NewRecorder()

	ItemsSearch(&stubItemsService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestItemFetchFormatsPrice(t *testing.T) {
	item := sampleItem(uuid.New())
	svc := &stubItemsService{
		getFn: func(_ context.Context, itemID uuid.UUID) (*models.Item, error) {
			if itemID != item.ID {
				t.Fatalf("unexpected item id %s", itemID)
			}
			return &item, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items/"+item.ID.String(), nil)
	req = withURLParam(req, "itemId", item.ID.String())
	rec := httptest.NewRecorder()

	ItemFetch(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data itemResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SalePrice != "149.99" || envelope.Data.Condition != "used" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestItemFetchRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items/not-a-uuid", nil)
	req = withURLParam(req, "itemId", "not-a-uuid")
	rec := httptest.NewRecorder()

	ItemFetch(&stubItemsService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSellerCreateItemUsesCallerAsOwner(t *testing.T) {
	principal := sellerPrincipal()
	svc := &stubItemsService{
		registerFn: func(_ context.Context, sellerID uuid.UUID, input items.RegisterItemInput) (*models.Item, error) {
			if sellerID != principal.ID {
				t.Fatalf("owner should be the caller, got %s", sellerID)
			}
			if !input.SalePrice.Equal(decimal.RequireFromString("9.50")) {
				t.Fatalf("price not parsed: %s", input.SalePrice)
			}
			item := sampleItem(sellerID)
			item.Name = input.Name
			return &item, nil
		},
	}

	body := []byte(`{
		"name": "Jungle Snorlax",
		"category": 3,
		"condition": "used",
		"sale_price": "9.50",
		"quantity": 2,
		"keywords": ["snorlax"]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/seller/items", bytes.NewReader(body))
	req = withSession(req, uuid.New(), principal)
	rec := httptest.NewRecorder()

	SellerCreateItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSellerCreateItemRejectsUnparsablePrice(t *testing.T) {
	body := []byte(`{
		"name": "Jungle Snorlax",
		"category": 3,
		"condition": "used",
		"sale_price": "nine fifty",
		"quantity": 2
	}`)
	req := httptest.NewRequest(http.MethodPost, "/seller/items", bytes.NewReader(body))
	req = withSession(req, uuid.New(), sellerPrincipal())
	rec := httptest.NewRecorder()

	SellerCreateItem(&stubItemsService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSellerChangePriceForwardsOwnership(t *testing.T) {
	principal := sellerPrincipal()
	itemID := uuid.New()
	svc := &stubItemsService{
		changePriceFn: func(_ context.Context, gotItem, gotSeller uuid.UUID, price decimal.Decimal) error {
			if gotItem != itemID || gotSeller != principal.ID {
				t.Fatalf("unexpected identities %s %s", gotItem, gotSeller)
			}
			if !price.Equal(decimal.RequireFromString("12.00")) {
				t.Fatalf("unexpected price %s", price)
			}
			return nil
		},
	}

	body := []byte(`{"sale_price": "12.00"}`)
	req := httptest.NewRequest(http.MethodPatch, "/seller/items/"+itemID.String()+"/price", bytes.NewReader(body))
	req = withURLParam(withSession(req, uuid.New(), principal), "itemId", itemID.String())
	rec := httptest.NewRecorder()

	SellerChangePrice(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSellerChangeQuantitySurfacesForeignItem(t *testing.T) {
	itemID := uuid.New()
	svc := &stubItemsService{
		changeQuantityFn: func(_ context.Context, _, _ uuid.UUID, _ int) error {
			return pkgerrors.New(pkgerrors.CodeForbidden, "item belongs to another seller")
		},
	}

	body := []byte(`{"quantity": 4}`)
	req := httptest.NewRequest(http.MethodPatch, "/seller/items/"+itemID.String()+"/quantity", bytes.NewReader(body))
	req = withURLParam(withSession(req, uuid.New(), sellerPrincipal()), "itemId", itemID.String())
	rec := httptest.NewRecorder()

	SellerChangeQuantity(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestSellerListItems(t *testing.T) {
	principal := sellerPrincipal()
	svc := &stubItemsService{
		listBySellerFn: func(_ context.Context, sellerID uuid.UUID) ([]models.Item, error) {
			if sellerID != principal.ID {
				t.Fatalf("listed wrong seller %s", sellerID)
			}
			return []models.Item{sampleItem(sellerID), sampleItem(sellerID)}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/seller/items", nil)
	req = withSession(req, uuid.New(), principal)
	rec := httptest.NewRecorder()

	SellerListItems(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data []itemResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 items, got %d", len(envelope.Data))
	}
}
