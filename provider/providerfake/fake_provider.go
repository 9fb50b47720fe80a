// Package providerfake is an in-process CalendarProvider with canned outcomes.
package providerfake

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/tomwright0/dustin-schedule/provider"
	"golang.org/x/oauth2"
)

var (
	_ provider.CalendarProvider = (*FakeProvider)(nil)
	_ provider.Revoker          = (*FakeProvider)(nil)
)

// Outcome selects how CreateEvent behaves.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePermissionFailure
	OutcomeFailure
)

// FakeProvider maps authorization codes to identities and records every
// CreateEvent call.
type FakeProvider struct {
	lock sync.Mutex

	identities  map[string]string // code -> email
	exchangeErr error
	outcome     Outcome
	failureMsg  string
	refreshed   *oauth2.Token

	events  []provider.Event
	tokens  []*oauth2.Token
	revoked []*oauth2.Token
	nextID  int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{identities: make(map[string]string)}
}

// WithIdentity makes code exchange successfully for email.
func (f *FakeProvider) WithIdentity(code, email string) *FakeProvider {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.identities[code] = email
	return f
}

// FailExchange makes every code exchange fail with err.
func (f *FakeProvider) FailExchange(err error) *FakeProvider {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.exchangeErr = err
	return f
}

// SetOutcome selects the CreateEvent result; msg is used for OutcomeFailure.
func (f *FakeProvider) SetOutcome(o Outcome, msg string) *FakeProvider {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.outcome = o
	f.failureMsg = msg
	return f
}

// RefreshTo makes CreateEvent report tok as the credential in effect.
func (f *FakeProvider) RefreshTo(tok *oauth2.Token) *FakeProvider {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshed = tok
	return f
}

func (f *FakeProvider) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	return "https://provider.test/consent?" + q.Encode()
}

func (f *FakeProvider) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if _, ok := f.identities[code]; !ok {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		TokenType:    "Bearer",
	}, nil
}

func (f *FakeProvider) FetchIdentity(_ context.Context, tok *oauth2.Token) (provider.Identity, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for code, email := range f.identities {
		if tok.AccessToken == "access-"+code {
			return provider.Identity{Subject: code, Email: email, EmailVerified: true}, nil
		}
	}
	return provider.Identity{}, errors.New("unknown token")
}

func (f *FakeProvider) CreateEvent(_ context.Context, tok *oauth2.Token, event provider.Event) (provider.CreatedEvent, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.events = append(f.events, event)
	f.tokens = append(f.tokens, tok)

	switch f.outcome {
	case OutcomePermissionFailure:
		return provider.CreatedEvent{}, fmt.Errorf("googleapi: Error 403: Request had insufficient authentication scopes: %w", provider.ErrInsufficientPermission)
	case OutcomeFailure:
		return provider.CreatedEvent{}, errors.New(f.failureMsg)
	}

	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	credential := tok
	if f.refreshed != nil {
		credential = f.refreshed
	}
	return provider.CreatedEvent{
		ID:         id,
		HTMLLink:   "https://calendar.test/event?eid=" + id,
		Credential: credential,
	}, nil
}

func (f *FakeProvider) Revoke(_ context.Context, tok *oauth2.Token) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.revoked = append(f.revoked, tok)
	return nil
}

// Events returns the CreateEvent calls seen so far.
func (f *FakeProvider) Events() []provider.Event {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]provider.Event(nil), f.events...)
}

// Tokens returns the credentials passed to CreateEvent.
func (f *FakeProvider) Tokens() []*oauth2.Token {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]*oauth2.Token(nil), f.tokens...)
}

// Revoked returns the credentials passed to Revoke.
func (f *FakeProvider) Revoked() []*oauth2.Token {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]*oauth2.Token(nil), f.revoked...)
}
