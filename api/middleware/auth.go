package middleware

import (
	"net/http"

	"github.com/dcastellanos/marketbay-backend/api/responses"
	"github.com/dcastellanos/marketbay-backend/api/validators"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
)

// Auth resolves the opaque bearer token to a live session and seeds the
// request context with the principal. Every authenticated request slides the
// session's idle window as a side effect of validation.
func Auth(sessions session.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := validators.ParseSessionToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing or malformed session token"))
				return
			}

			principal, err := sessions.Validate(r.Context(), sessionID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithSession(r.Context(), sessionID, principal)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID.String())
				switch principal.Kind {
				case enums.PrincipalKindBuyer:
					ctx = logg.WithBuyerID(ctx, principal.ID.String())
				case enums.PrincipalKindSeller:
					ctx = logg.WithSellerID(ctx, principal.ID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireKind gates a route to one principal kind. Must run after Auth.
func RequireKind(kind enums.PrincipalKind, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if principal.Kind != kind {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not available for this account type"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
