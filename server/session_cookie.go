package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// SessionCookieName carries the signed session id.
const SessionCookieName = "dustin_session"

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) error {
	value, err := s.codec.EncodeSessionID(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.codec.MaxAge().Seconds()),
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// sessionID returns the verified session id from the request cookie, or ""
// when there is none or it fails verification.
func (s *Server) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, err := s.codec.DecodeSessionID(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring session cookie")
		return ""
	}
	return id
}

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.GetCookieSecure() || getScheme(r) == "https"
}
