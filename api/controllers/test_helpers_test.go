package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	checkoutsvc "github.com/dcastellanos/marketbay-backend/internal/checkout"
	"github.com/dcastellanos/marketbay-backend/internal/payments"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

type stubSessionService struct {
	createSessionFn func(ctx context.Context, principalID uuid.UUID, kind enums.PrincipalKind) (*session.SessionDTO, error)
	validateFn      func(ctx context.Context, sessionID uuid.UUID) (*session.Principal, error)
	destroyFn       func(ctx context.Context, sessionID uuid.UUID) error
	addItemFn       func(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error
	removeItemFn    func(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error
	getActiveCartFn func(ctx context.Context, sessionID uuid.UUID) (types.CartItems, error)
	saveCartFn      func(ctx context.Context, sessionID uuid.UUID) error
	clearBothFn     func(ctx context.Context, buyerID, sessionID uuid.UUID) error
}

func (s *stubSessionService) CreateSession(ctx context.Context, principalID uuid.UUID, kind enums.PrincipalKind) (*session.SessionDTO, error) {
	return s.createSessionFn(ctx, principalID, kind)
}

func (s *stubSessionService) Validate(ctx context.Context, sessionID uuid.UUID) (*session.Principal, error) {
	return s.validateFn(ctx, sessionID)
}

func (s *stubSessionService) Destroy(ctx context.Context, sessionID uuid.UUID) error {
	return s.destroyFn(ctx, sessionID)
}

func (s *stubSessionService) AddItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error {
	return s.addItemFn(ctx, sessionID, itemID, qty)
}

func (s *stubSessionService) RemoveItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error {
	return s.removeItemFn(ctx, sessionID, itemID, qty)
}

func (s *stubSessionService) GetActiveCart(ctx context.Context, sessionID uuid.UUID) (types.CartItems, error) {
	return s.getActiveCartFn(ctx, sessionID)
}

func (s *stubSessionService) SaveCart(ctx context.Context, sessionID uuid.UUID) error {
	return s.saveCartFn(ctx, sessionID)
}

func (s *stubSessionService) ClearBoth(ctx context.Context, buyerID, sessionID uuid.UUID) error {
	return s.clearBothFn(ctx, buyerID, sessionID)
}

type stubAccountsService struct {
	registerBuyerFn     func(ctx context.Context, username, password string) (*accounts.AccountDTO, error)
	registerSellerFn    func(ctx context.Context, username, password string) (*accounts.AccountDTO, error)
	verifyCredentialsFn func(ctx context.Context, kind enums.PrincipalKind, username, password string) (*accounts.AccountDTO, error)
	getSellerRatingFn   func(ctx context.Context, sellerID uuid.UUID) (*accounts.SellerRatingDTO, error)
}

func (s *stubAccountsService) RegisterBuyer(ctx context.Context, username, password string) (*accounts.AccountDTO, error) {
	return s.registerBuyerFn(ctx, username, password)
}

func (s *stubAccountsService) RegisterSeller(ctx context.Context, username, password string) (*accounts.AccountDTO, error) {
	return s.registerSellerFn(ctx, username, password)
}

func (s *stubAccountsService) VerifyCredentials(ctx context.Context, kind enums.PrincipalKind, username, password string) (*accounts.AccountDTO, error) {
	return s.verifyCredentialsFn(ctx, kind, username, password)
}

func (s *stubAccountsService) GetSellerRating(ctx context.Context, sellerID uuid.UUID) (*accounts.SellerRatingDTO, error) {
	return s.getSellerRatingFn(ctx, sellerID)
}

type stubCheckoutService struct {
	checkoutFn func(ctx context.Context, buyerID, sessionID uuid.UUID, card payments.Card) (*checkoutsvc.Result, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, buyerID, sessionID uuid.UUID, card payments.Card) (*checkoutsvc.Result, error) {
	return s.checkoutFn(ctx, buyerID, sessionID, card)
}

// withSession seeds the request context the way the auth middleware would.
func withSession(r *http.Request, sessionID uuid.UUID, principal *session.Principal) *http.Request {
	return r.WithContext(middleware.WithSession(r.Context(), sessionID, principal))
}

// withURLParam seeds a chi route parameter without mounting a router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
