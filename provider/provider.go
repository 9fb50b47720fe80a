// Package provider defines the narrow surface the scheduler needs from an
// external calendar service: the OAuth consent and code exchange, the
// signed-in identity, and event creation.
package provider

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrInsufficientPermission is returned (wrapped) by CreateEvent when the
	// credential lacks the calendar write grant.
	ErrInsufficientPermission = errors.New("insufficient permission")
)

// Identity is the account the provider authenticated.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// Event is a calendar entry to create.
type Event struct {
	CalendarID string
	Summary    string
	Start      time.Time
	End        time.Time
}

// CreatedEvent is the provider's view of a created event. Credential is the
// token bundle in effect after the call; it differs from the one passed in
// when the provider refreshed it.
type CreatedEvent struct {
	ID         string
	HTMLLink   string
	Credential *oauth2.Token
}

// CalendarProvider is the external calendar service.
type CalendarProvider interface {
	// AuthCodeURL returns the consent URL. It always asks for offline access
	// and forces the consent screen.
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error)
	CreateEvent(ctx context.Context, token *oauth2.Token, event Event) (CreatedEvent, error)
}

// Revoker is implemented by providers that can revoke a grant.
type Revoker interface {
	Revoke(ctx context.Context, token *oauth2.Token) error
}
