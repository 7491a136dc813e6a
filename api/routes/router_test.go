package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/dcastellanos/marketbay-backend/internal/checkout"
	"github.com/dcastellanos/marketbay-backend/internal/items"
	"github.com/dcastellanos/marketbay-backend/internal/payments"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

type routeSessions struct {
	principals map[uuid.UUID]*session.Principal
}

func (s *routeSessions) CreateSession(context.Context, uuid.UUID, enums.PrincipalKind) (*session.SessionDTO, error) {
	return &session.SessionDTO{SessionID: uuid.New()}, nil
}

func (s *routeSessions) Validate(_ context.Context, sessionID uuid.UUID) (*session.Principal, error) {
	if p, ok := s.principals[sessionID]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired, log in again")
}

func (s *routeSessions) Destroy(context.Context, uuid.UUID) error { return nil }
func (s *routeSessions) AddItem(context.Context, uuid.UUID, uuid.UUID, int) error {
	return nil
}
func (s *routeSessions) RemoveItem(context.Context, uuid.UUID, uuid.UUID, int) error {
	return nil
}
func (s *routeSessions) GetActiveCart(context.Context, uuid.UUID) (types.CartItems, error) {
	return types.CartItems{}, nil
}
func (s *routeSessions) SaveCart(context.Context, uuid.UUID) error { return nil }
func (s *routeSessions) ClearBoth(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type routeItems struct{}

func (routeItems) Register(context.Context, uuid.UUID, items.RegisterItemInput) (*models.Item, error) {
	return &models.Item{}, nil
}
func (routeItems) Get(context.Context, uuid.UUID) (*models.Item, error) {
	return &models.Item{}, nil
}
func (routeItems) ListBySeller(context.Context, uuid.UUID) ([]models.Item, error) {
	return nil, nil
}
func (routeItems) ChangePrice(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal) error {
	return nil
}
func (routeItems) ChangeQuantity(context.Context, uuid.UUID, uuid.UUID, int) error {
	return nil
}
func (routeItems) Search(context.Context, items.SearchFilter) ([]models.Item, error) {
	return nil, nil
}

type routeCheckout struct{}

func (routeCheckout) Checkout(context.Context, uuid.UUID, uuid.UUID, payments.Card) (*checkoutsvc.Result, error) {
	return &checkoutsvc.Result{Status: checkoutsvc.StatusEmptyCart, Amount: decimal.Zero}, nil
}

func testRouter(sessions *routeSessions) http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(cfg, nil, nil, nil, Services{
		Sessions: sessions,
		Items:    routeItems{},
		Checkout: routeCheckout{},
	})
}

func TestRouterPublicRoutes(t *testing.T) {
	router := testRouter(&routeSessions{})

	for _, path := range []string{"/health/live", "/metrics", "/api/v1/items"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestRouterProtectedRoutesRequireSession(t *testing.T) {
	router := testRouter(&routeSessions{})

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodGet, "/api/v1/purchases"},
		{http.MethodGet, "/api/v1/seller/items"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestRouterBuyerRoutesBlockSellers(t *testing.T) {
	sellerSession := uuid.New()
	sessions := &routeSessions{principals: map[uuid.UUID]*session.Principal{
		sellerSession: {ID: uuid.New(), Kind: enums.PrincipalKindSeller},
	}}
	router := testRouter(sessions)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/cart/items"},
		{http.MethodDelete, "/api/v1/cart/items"},
		{http.MethodPost, "/api/v1/cart/save"},
		{http.MethodPost, "/api/v1/cart/clear"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		req.Header.Set("Authorization", "Bearer "+sellerSession.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestRouterSellerRoutesBlockBuyers(t *testing.T) {
	buyerSession := uuid.New()
	sessions := &routeSessions{principals: map[uuid.UUID]*session.Principal{
		buyerSession: {ID: uuid.New(), Kind: enums.PrincipalKindBuyer},
	}}
	router := testRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/items", nil)
	req.Header.Set("Authorization", "Bearer "+buyerSession.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestRouterAuthedBuyerReachesCart(t *testing.T) {
	buyerSession := uuid.New()
	sessions := &routeSessions{principals: map[uuid.UUID]*session.Principal{
		buyerSession: {ID: uuid.New(), Kind: enums.PrincipalKindBuyer},
	}}
	router := testRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buyerSession.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}
