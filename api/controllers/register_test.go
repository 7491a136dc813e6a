package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

func TestRegisterBuyerAutoLogin(t *testing.T) {
	accountID := uuid.New()
	sessionID := uuid.New()

	accountsSvc := &stubAccountsService{
		registerBuyerFn: func(_ context.Context, username, password string) (*accounts.AccountDTO, error) {
			if username != "alice" || password != "hunter2hunter2" {
				t.Fatalf("unexpected credentials %s", username)
			}
			return &accounts.AccountDTO{ID: accountID, Username: "alice", Kind: enums.PrincipalKindBuyer}, nil
		},
	}
	sessions := &stubSessionService{
		createSessionFn: func(_ context.Context, principalID uuid.UUID, kind enums.PrincipalKind) (*session.SessionDTO, error) {
			if principalID != accountID || kind != enums.PrincipalKindBuyer {
				t.Fatalf("session created for wrong principal %s %s", principalID, kind)
			}
			return &session.SessionDTO{
				SessionID: sessionID,
				Principal: session.Principal{ID: principalID, Kind: kind},
			}, nil
		},
	}

	body := []byte(`{"username": "alice", "password": "hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/buyers/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	RegisterBuyer(accountsSvc, sessions, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data accountResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != accountID || envelope.Data.SessionID != sessionID || envelope.Data.Kind != "buyer" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestRegisterSellerUsesSellerKind(t *testing.T) {
	accountsSvc := &stubAccountsService{
		registerSellerFn: func(_ context.Context, username, _ string) (*accounts.AccountDTO, error) {
			return &accounts.AccountDTO{ID: uuid.New(), Username: username, Kind: enums.PrincipalKindSeller}, nil
		},
	}
	sessions := &stubSessionService{
		createSessionFn: func(_ context.Context, principalID uuid.UUID, kind enums.PrincipalKind) (*session.SessionDTO, error) {
			if kind != enums.PrincipalKindSeller {
				t.Fatalf("expected seller session, got %s", kind)
			}
			return &session.SessionDTO{SessionID: uuid.New(), Principal: session.Principal{ID: principalID, Kind: kind}}, nil
		},
	}

	body := []byte(`{"username": "bobs-cards", "password": "hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/sellers/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	RegisterSeller(accountsSvc, sessions, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	body := []byte(`{"username": "alice", "password": "short"}`)
	req := httptest.NewRequest(http.MethodPost, "/buyers/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	RegisterBuyer(&stubAccountsService{}, &stubSessionService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRegisterSurfacesUsernameConflict(t *testing.T) {
	accountsSvc := &stubAccountsService{
		registerBuyerFn: func(_ context.Context, _, _ string) (*accounts.AccountDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		},
	}

	body := []byte(`{"username": "alice", "password": "hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/buyers/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	RegisterBuyer(accountsSvc, &stubSessionService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "username already taken" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}
