package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

func buyerPrincipal() *session.Principal {
	return &session.Principal{ID: uuid.New(), Kind: enums.PrincipalKindBuyer}
}

func TestCartAddItemReturnsUpdatedCart(t *testing.T) {
	sessionID := uuid.New()
	itemID := uuid.New()
	sessions := &stubSessionService{
		addItemFn: func(_ context.Context, gotSession, gotItem uuid.UUID, qty int) error {
			if gotSession != sessionID || gotItem != itemID || qty != 2 {
				t.Fatalf("unexpected add %s %s %d", gotSession, gotItem, qty)
			}
			return nil
		},
		getActiveCartFn: func(_ context.Context, _ uuid.UUID) (types.CartItems, error) {
			return types.CartItems{itemID: 2}, nil
		},
	}

	body := []byte(fmt.Sprintf(`{"item_id":%q,"quantity":2}`, itemID))
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
	req = withSession(req, sessionID, buyerPrincipal())
	rec := httptest.NewRecorder()

	CartAddItem(sessions, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Items[itemID.String()] != 2 {
		t.Fatalf("unexpected cart %+v", envelope.Data)
	}
}

func TestCartAddItemRejectsNonPositiveQuantity(t *testing.T) {
	body := []byte(fmt.Sprintf(`{"item_id":%q,"quantity":0}`, uuid.New()))
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
	req = withSession(req, uuid.New(), buyerPrincipal())
	rec := httptest.NewRecorder()

	CartAddItem(&stubSessionService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCartRemoveItemSurfacesOverRemove(t *testing.T) {
	sessions := &stubSessionService{
		removeItemFn: func(_ context.Context, _, _ uuid.UUID, _ int) error {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove more than the cart holds")
		},
	}

	body := []byte(fmt.Sprintf(`{"item_id":%q,"quantity":5}`, uuid.New()))
	req := httptest.NewRequest(http.MethodDelete, "/cart/items", bytes.NewReader(body))
	req = withSession(req, uuid.New(), buyerPrincipal())
	rec := httptest.NewRecorder()

	CartRemoveItem(sessions, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestCartFetchSurfacesExpiredSession(t *testing.T) {
	sessions := &stubSessionService{
		getActiveCartFn: func(_ context.Context, _ uuid.UUID) (types.CartItems, error) {
			return nil, pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req = withSession(req, uuid.New(), buyerPrincipal())
	rec := httptest.NewRecorder()

	CartFetch(sessions, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCartClearUsesPrincipalAndSession(t *testing.T) {
	principal := buyerPrincipal()
	sessionID := uuid.New()
	var gotBuyer, gotSession uuid.UUID
	sessions := &stubSessionService{
		clearBothFn: func(_ context.Context, buyerID, sid uuid.UUID) error {
			gotBuyer, gotSession = buyerID, sid
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/cart/clear", nil)
	req = withSession(req, sessionID, principal)
	rec := httptest.NewRecorder()

	CartClear(sessions, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if gotBuyer != principal.ID || gotSession != sessionID {
		t.Fatalf("unexpected clear args %s %s", gotBuyer, gotSession)
	}
}
