package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/dcastellanos/marketbay-backend/internal/session"
)

type contextKey string

const (
	ctxSessionID contextKey = "session_id"
	ctxPrincipal contextKey = "principal"
)

// SessionIDFromContext returns the authenticated session id, or uuid.Nil.
func SessionIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxSessionID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *session.Principal {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxPrincipal).(*session.Principal); ok {
		return v
	}
	return nil
}

// WithSession injects the session id and principal for downstream handlers.
func WithSession(ctx context.Context, sessionID uuid.UUID, principal *session.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	return context.WithValue(ctx, ctxPrincipal, principal)
}
