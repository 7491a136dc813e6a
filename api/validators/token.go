package validators

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

// ParseSessionToken extracts the opaque session id from an Authorization
// header value. Accepts the raw token or a "Bearer <token>" form.
func ParseSessionToken(raw string) (uuid.UUID, error) {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return uuid.Nil, ErrInvalidSessionToken
	}
	sessionID, err := uuid.Parse(token)
	if err != nil {
		return uuid.Nil, ErrInvalidSessionToken
	}
	return sessionID, nil
}
