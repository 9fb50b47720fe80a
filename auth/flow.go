package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tomwright0/dustin-schedule/access"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/provider"
	"github.com/tomwright0/dustin-schedule/sessions"
)

// Status is what the browser is told about its session.
type Status struct {
	Authenticated bool
	Email         string
}

// Callback is the provider's redirect back to us.
type Callback struct {
	Code string
	// PreviousSessionID is the session the browser already had, if any. It is
	// replaced by the new one.
	PreviousSessionID string
}

// Flow runs the three-legged OAuth sign-in and owns session creation and
// destruction.
type Flow struct {
	provider        provider.CalendarProvider
	policy          access.Policy
	sessions        sessions.Repo
	revokeOnSignOut bool
	newSessionID    func() string
	nowTime         func() time.Time
}

// FlowOption defines a function type to modify the Flow instance.
type FlowOption func(*Flow)

// WithRevokeOnSignOut revokes the provider grant when a user signs out.
func WithRevokeOnSignOut(revoke bool) FlowOption {
	return func(f *Flow) { f.revokeOnSignOut = revoke }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) FlowOption {
	return func(f *Flow) { f.nowTime = nowFunc }
}

// WithSessionIDGenerator sets how new session ids are minted
func WithSessionIDGenerator(gen func() string) FlowOption {
	return func(f *Flow) { f.newSessionID = gen }
}

func NewFlow(p provider.CalendarProvider, policy access.Policy, repo sessions.Repo, options ...FlowOption) (*Flow, error) {
	if p == nil {
		return nil, apperrors.New("[NewFlow] provider is required")
	}
	if repo == nil {
		return nil, apperrors.New("[NewFlow] sessions repo is required")
	}
	f := &Flow{
		provider:     p,
		policy:       policy,
		sessions:     repo,
		newSessionID: uuid.NewString,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// BeginSignIn returns the provider consent URL. It has no side effects.
func (f *Flow) BeginSignIn(state string) string {
	return f.provider.AuthCodeURL(state)
}

// CompleteSignIn exchanges the authorization code, verifies the identity
// against the allow-list and, only if allowed, stores a new session. The new
// session id is returned.
func (f *Flow) CompleteSignIn(ctx context.Context, cb Callback) (string, error) {
	if cb.Code == "" {
		return "", apperrors.ErrMissingCode
	}

	tok, err := f.provider.ExchangeCode(ctx, cb.Code)
	if err != nil {
		return "", &apperrors.AuthExchangeError{Message: err.Error()}
	}

	identity, err := f.provider.FetchIdentity(ctx, tok)
	if err != nil {
		return "", &apperrors.AuthExchangeError{Message: err.Error()}
	}

	if strings.TrimSpace(identity.Email) == "" {
		return "", &apperrors.AuthExchangeError{Message: "provider returned no email for the account"}
	}

	if !f.policy.IsAllowed(identity.Email) {
		return "", apperrors.Wrapf(apperrors.ErrForbiddenIdentity, "%s", identity.Email)
	}

	sessionID := f.newSessionID()
	err = f.sessions.Upsert(ctx, sessionID, sessions.Session{
		Token:     tok,
		Email:     identity.Email,
		CreatedAt: f.nowTime(),
	})
	if err != nil {
		return "", apperrors.Wrapf(err, "[Flow CompleteSignIn] store session")
	}

	if cb.PreviousSessionID != "" && cb.PreviousSessionID != sessionID {
		if err := f.sessions.Delete(ctx, cb.PreviousSessionID); err != nil {
			log.Warn().Err(err).Msg("Failed to delete replaced session")
		}
	}
	return sessionID, nil
}

// Status reports whether sessionID holds a credential.
func (f *Flow) Status(ctx context.Context, sessionID string) (Status, error) {
	if sessionID == "" {
		return Status{}, nil
	}
	s, err := f.sessions.Get(ctx, sessionID)
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, apperrors.Wrapf(err, "[Flow Status]")
	}
	if !s.Authenticated() {
		return Status{}, nil
	}
	return Status{Authenticated: true, Email: s.Email}, nil
}

// Session returns the authenticated session for sessionID or
// ErrNotAuthenticated.
func (f *Flow) Session(ctx context.Context, sessionID string) (sessions.Session, error) {
	if sessionID == "" {
		return sessions.Session{}, apperrors.ErrNotAuthenticated
	}
	s, err := f.sessions.Get(ctx, sessionID)
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return sessions.Session{}, apperrors.ErrNotAuthenticated
	}
	if err != nil {
		return sessions.Session{}, apperrors.Wrapf(err, "[Flow Session]")
	}
	if !s.Authenticated() {
		return sessions.Session{}, apperrors.ErrNotAuthenticated
	}
	return s, nil
}

// SignOut destroys the session. Signing out twice, or without a session, is
// not an error. Revocation is best effort and never blocks destruction.
func (f *Flow) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if f.revokeOnSignOut {
		if revoker, ok := f.provider.(provider.Revoker); ok {
			if s, err := f.sessions.Get(ctx, sessionID); err == nil && s.Token != nil {
				if err := revoker.Revoke(ctx, s.Token); err != nil {
					log.Err(err).Str("email", s.Email).Msg("Failed to revoke provider grant")
				}
			}
		}
	}

	if err := f.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.Wrapf(err, "[Flow SignOut]")
	}
	return nil
}
