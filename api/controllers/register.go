package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type accountResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Kind      string    `json:"kind"`
	SessionID uuid.UUID `json:"session_id"`
}

// RegisterBuyer creates a buyer account and logs it straight in.
func RegisterBuyer(accountsSvc accounts.Service, sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return registerHandler(accountsSvc, sessions, logg, enums.PrincipalKindBuyer)
}

// RegisterSeller creates a seller account and logs it straight in.
func RegisterSeller(accountsSvc accounts.Service, sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return registerHandler(accountsSvc, sessions, logg, enums.PrincipalKindSeller)
}

func registerHandler(accountsSvc accounts.Service, sessions session.Service, logg *logger.Logger, kind enums.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accountsSvc == nil || sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var account *accounts.AccountDTO
		var err error
		switch kind {
		case enums.PrincipalKindBuyer:
			account, err = accountsSvc.RegisterBuyer(r.Context(), body.Username, body.Password)
		default:
			account, err = accountsSvc.RegisterSeller(r.Context(), body.Username, body.Password)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := sessions.CreateSession(r.Context(), account.ID, account.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, accountResponse{
			ID:        account.ID,
			Username:  account.Username,
			Kind:      account.Kind.String(),
			SessionID: sess.SessionID,
		})
	}
}
