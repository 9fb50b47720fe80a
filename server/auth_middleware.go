package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySessionID stores the verified session id
	ContextKeySessionID ContextKey = "session_id"
	// ContextKeyEmail stores the signed-in identity
	ContextKeyEmail ContextKey = "email"
)

// RequireSession is middleware for API routes that need a signed-in session.
// Requests without a cookie, with a forged one, or whose session holds no
// credential get 401 with a JSON error body.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID := s.sessionID(r)

			session, err := s.flow.Session(r.Context(), sessionID)
			if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
				writeJSONError(w, http.StatusUnauthorized, msgNotAuthenticated)
				return
			}
			if err != nil {
				log.Err(err).Msg("Failed to load session")
				writeJSONError(w, http.StatusInternalServerError, "Failed to read session.")
				return
			}

			// Inject session info into context
			ctx := context.WithValue(r.Context(), ContextKeySessionID, sessionID)
			ctx = context.WithValue(ctx, ContextKeyEmail, session.Email)
			next(w, r.WithContext(ctx))
		}
	}
}

// SessionIDFromContext returns the session id set by RequireSession.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeySessionID).(string)
	return id, ok && id != ""
}

// EmailFromContext returns the identity set by RequireSession.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(ContextKeyEmail).(string)
	return email
}
