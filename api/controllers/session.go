package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=buyer seller"`
}

type loginResponse struct {
	SessionID   uuid.UUID `json:"session_id"`
	PrincipalID uuid.UUID `json:"principal_id"`
	Kind        string    `json:"kind"`
}

// Login verifies credentials and opens a session. For buyers this also seeds
// the active cart from the saved cart.
func Login(accountsSvc accounts.Service, sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accountsSvc == nil || sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind := enums.PrincipalKind(body.Kind)
		account, err := accountsSvc.VerifyCredentials(r.Context(), kind, body.Username, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := sessions.CreateSession(r.Context(), account.ID, account.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loginResponse{
			SessionID:   sess.SessionID,
			PrincipalID: account.ID,
			Kind:        account.Kind.String(),
		})
	}
}

// Logout destroys the caller's session; the active cart dies with it.
func Logout(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		if err := sessions.Destroy(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
