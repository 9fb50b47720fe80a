// Package sessions holds the server-side credential record for one browser
// client and the codec that binds it to a cookie.
package sessions

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Session is the credential store for one browser client. Token and Email are
// written together by a successful sign-in and are only ever replaced or
// deleted as a whole.
type Session struct {
	Token     *oauth2.Token `json:"token"`
	Email     string        `json:"email"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Authenticated reports whether the session holds a credential.
func (s Session) Authenticated() bool {
	return s.Token != nil && s.Email != ""
}

// Repo stores sessions by id. Get returns errors.ErrSessionNotFound for ids
// that were never stored, were deleted or have expired. Delete is idempotent.
type Repo interface {
	Upsert(ctx context.Context, sessionID string, session Session) error
	Get(ctx context.Context, sessionID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}
