package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/scheduler"
)

const (
	msgNotAuthenticated  = "Not authenticated. Use Sign in first."
	msgInvalidPayload    = "Invalid payload. Expected startDateTime and type ('Vacuum Only'|'Full Clean')."
	msgInvalidDateTime   = "Invalid date/time."
	msgPermissionRevoked = "Google token is missing calendar write permission. Please sign in again and grant Calendar access."
	msgEventCreated      = "Event created."

	maxEventBodyBytes = 1 << 16
)

type eventResponse struct {
	Message   string `json:"message"`
	EventID   string `json:"eventId"`
	EventLink string `json:"eventLink"`
}

type embedURLResponse struct {
	EmbedURL string `json:"embedUrl"`
}

// CreateEventHandler schedules one event for the signed-in session. It runs
// behind RequireSession.
func (s *Server) CreateEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := SessionIDFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}

		var req scheduler.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes)).Decode(&req); err != nil {
			s.metrics.schedulesTotal.WithLabelValues("", "invalid").Inc()
			writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
			return
		}
		eventLabel := req.Type
		if _, ok := scheduler.ParseEventType(req.Type); !ok {
			eventLabel = ""
		}

		if s.throttle != nil {
			if left, ok := s.throttle.acquire(sessionID); !ok {
				s.metrics.schedulesTotal.WithLabelValues(eventLabel, "throttled").Inc()
				secondsLeft := int(math.Ceil(left.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))
				writeJSONError(w, http.StatusTooManyRequests, fmt.Sprintf("Please wait %ds before creating another event.", secondsLeft))
				return
			}
		}

		result, err := s.scheduler.Schedule(r.Context(), sessionID, req)
		if err != nil {
			status, message, outcome := classifyScheduleError(err)
			if status == http.StatusForbidden {
				s.clearSessionCookie(w, r)
			}
			if status >= http.StatusInternalServerError {
				log.Err(err).Str("email", EmailFromContext(r.Context())).Str("type", req.Type).Msg("Failed to create event")
			}
			s.metrics.schedulesTotal.WithLabelValues(eventLabel, outcome).Inc()
			writeJSONError(w, status, message)
			return
		}

		log.Info().Str("email", EmailFromContext(r.Context())).Str("type", req.Type).Str("eventId", result.EventID).Time("start", result.Start).Msg("Event created")
		s.metrics.schedulesTotal.WithLabelValues(eventLabel, "created").Inc()
		writeJSON(w, http.StatusOK, eventResponse{
			Message:   msgEventCreated,
			EventID:   result.EventID,
			EventLink: result.EventLink,
		})
	}
}

// classifyScheduleError maps a scheduling error to its HTTP status, the
// message shown to the user and a metrics outcome.
func classifyScheduleError(err error) (int, string, string) {
	var reqErr *apperrors.InvalidRequestError
	var providerErr *apperrors.ProviderError
	switch {
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		return http.StatusUnauthorized, msgNotAuthenticated, "unauthenticated"
	case apperrors.As(err, &reqErr):
		if reqErr.Field == "startDateTime" && reqErr.Reason == scheduler.ReasonInvalidTime {
			return http.StatusBadRequest, msgInvalidDateTime, "invalid"
		}
		return http.StatusBadRequest, msgInvalidPayload, "invalid"
	case apperrors.Is(err, apperrors.ErrPermissionRevoked):
		return http.StatusForbidden, msgPermissionRevoked, "permission_revoked"
	case apperrors.As(err, &providerErr):
		return http.StatusInternalServerError, "Failed to create event: " + providerErr.Message, "provider_error"
	default:
		return http.StatusInternalServerError, "Failed to create event.", "error"
	}
}

func (s *Server) EmbedURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, embedURLResponse{EmbedURL: s.config.GetEmbedURL()})
	}
}
