package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
)

// TokenParser resolves lecturer ID from bearer tokens.
type TokenParser interface {
	ParseLecturerToken(tokenString string) (uuid.UUID, error)
}

type contextKey string

const lecturerIDKey contextKey = "lecturer_id"

// LecturerIDFromContext retrieves the authenticated lecturer ID.
func LecturerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(lecturerIDKey).(uuid.UUID)
	return id, ok
}

// Authenticate validates bearer tokens and injects lecturer ID into the
// request context.
type Authenticate struct {
	tokens TokenParser
	logger *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens TokenParser, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokens: tokens, logger: logger}
}

// Handle parses the Authorization header and rejects unauthenticated
// requests with 401.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			http.Error(w, "missing authorization token", http.StatusUnauthorized)
			return
		}

		lecturerID, err := m.tokens.ParseLecturerToken(tokenString)
		if err != nil {
			m.logger.Warn("rejected access token", "error", err.Error())
			http.Error(w, "invalid authorization token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), lecturerIDKey, lecturerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
