package server

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tomwright0/dustin-schedule/auth"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/internal/utils"
)

type authStatusResponse struct {
	Authenticated bool    `json:"authenticated"`
	Email         *string `json:"email"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// BeginSignInHandler redirects the browser to the provider consent screen.
func (s *Server) BeginSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.codec.NewState()
		if err != nil {
			log.Err(err).Msg("Failed to mint OAuth state")
			writeText(w, http.StatusInternalServerError, "Failed to start sign in.")
			return
		}
		http.Redirect(w, r, s.flow.BeginSignIn(state), http.StatusFound)
	}
}

// CallbackHandler completes sign-in. Only an allowed identity gets a session
// cookie; every failure leaves the browser without one.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if providerErr := query.Get("error"); providerErr != "" {
			s.metrics.signInsTotal.WithLabelValues("provider_error").Inc()
			writeText(w, http.StatusBadRequest, fmt.Sprintf("Sign in was not completed: %s", providerErr))
			return
		}

		code := query.Get("code")
		if code == "" {
			s.metrics.signInsTotal.WithLabelValues("missing_code").Inc()
			writeText(w, http.StatusBadRequest, "Missing auth code.")
			return
		}

		if err := s.codec.VerifyState(query.Get("state")); err != nil {
			log.Warn().Err(err).Msg("Rejected sign-in callback state")
			s.metrics.signInsTotal.WithLabelValues("invalid_state").Inc()
			writeText(w, http.StatusBadRequest, "Invalid or expired sign-in state. Please sign in again.")
			return
		}

		sessionID, err := s.flow.CompleteSignIn(r.Context(), auth.Callback{
			Code:              code,
			PreviousSessionID: s.sessionID(r),
		})
		switch {
		case err == nil:
		case apperrors.Is(err, apperrors.ErrMissingCode):
			s.metrics.signInsTotal.WithLabelValues("missing_code").Inc()
			writeText(w, http.StatusBadRequest, "Missing auth code.")
			return
		case apperrors.Is(err, apperrors.ErrForbiddenIdentity):
			log.Warn().Err(err).Msg("Sign-in refused by allow-list")
			s.metrics.signInsTotal.WithLabelValues("forbidden").Inc()
			writeText(w, http.StatusForbidden, fmt.Sprintf("This Google account is not allowed to use %s.", s.config.GetAppName()))
			return
		default:
			log.Err(err).Msg("Sign-in failed")
			s.metrics.signInsTotal.WithLabelValues("exchange_failed").Inc()
			var exchangeErr *apperrors.AuthExchangeError
			if apperrors.As(err, &exchangeErr) {
				writeText(w, http.StatusInternalServerError, "Google auth failed: "+exchangeErr.Message)
				return
			}
			writeText(w, http.StatusInternalServerError, "Google auth failed.")
			return
		}

		if err := s.setSessionCookie(w, r, sessionID); err != nil {
			log.Err(err).Msg("Failed to sign session cookie")
			s.metrics.signInsTotal.WithLabelValues("error").Inc()
			writeText(w, http.StatusInternalServerError, "Google auth failed.")
			return
		}
		s.metrics.signInsTotal.WithLabelValues("success").Inc()
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.flow.Status(r.Context(), s.sessionID(r))
		if err != nil {
			log.Err(err).Msg("Failed to read session status")
			writeJSONError(w, http.StatusInternalServerError, "Failed to read session.")
			return
		}
		resp := authStatusResponse{Authenticated: status.Authenticated}
		if status.Authenticated && status.Email != "" {
			resp.Email = utils.Ptr(status.Email)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// LogoutHandler destroys the session. Logging out without a session succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.flow.SignOut(r.Context(), s.sessionID(r)); err != nil {
			log.Err(err).Msg("Failed to destroy session")
			writeJSONError(w, http.StatusInternalServerError, "Failed to sign out.")
			return
		}
		s.clearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}
