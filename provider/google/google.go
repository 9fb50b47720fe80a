// Package google implements provider.CalendarProvider against Google OAuth,
// OpenID Connect and the Calendar v3 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/tomwright0/dustin-schedule/provider"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	Issuer    = "https://accounts.google.com"
	RevokeURL = "https://oauth2.googleapis.com/revoke"

	scopeCalendarEvents = "https://www.googleapis.com/auth/calendar.events"
	scopeUserInfoEmail  = "https://www.googleapis.com/auth/userinfo.email"
)

// Endpoint is Google's OAuth 2.0 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

var (
	_ provider.CalendarProvider = (*Provider)(nil)
	_ provider.Revoker          = (*Provider)(nil)
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Provider talks to Google. The OIDC discovery document is fetched lazily on
// first identity lookup and cached.
type Provider struct {
	oauth2Config *oauth2.Config
	issuer       string
	revokeURL    string
	calendarURL  string
	httpClient   *http.Client

	oidcLock     sync.RWMutex
	oidcProvider *oidc.Provider
}

// Option customises a Provider, mainly to point it at test servers.
type Option func(*Provider)

func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) { p.oauth2Config.Endpoint = endpoint }
}

func WithIssuer(issuer string) Option {
	return func(p *Provider) { p.issuer = issuer }
}

func WithRevokeURL(revokeURL string) Option {
	return func(p *Provider) { p.revokeURL = revokeURL }
}

// WithCalendarEndpoint overrides the Calendar API base path.
func WithCalendarEndpoint(endpoint string) Option {
	return func(p *Provider) { p.calendarURL = endpoint }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

func New(cfg Config, options ...Option) *Provider {
	p := &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     Endpoint,
			Scopes: []string{
				scopeCalendarEvents,
				scopeUserInfoEmail,
				oidc.ScopeOpenID,
				"email",
				"profile",
			},
		},
		issuer:     Issuer,
		revokeURL:  RevokeURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// AuthCodeURL asks for a refresh-capable grant and forces the consent screen
// every time so a previously narrowed grant is never silently reused.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.oauth2Config.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("[google ExchangeCode] %w", err)
	}
	return tok, nil
}

// FetchIdentity prefers the verified ID token returned with the exchange and
// falls back to the userinfo endpoint.
func (p *Provider) FetchIdentity(ctx context.Context, tok *oauth2.Token) (provider.Identity, error) {
	ctx = p.clientContext(ctx)
	op, err := p.getOidcProvider(ctx)
	if err != nil {
		return provider.Identity{}, err
	}

	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}

	if rawIDToken, ok := tok.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := op.Verifier(&oidc.Config{ClientID: p.oauth2Config.ClientID}).Verify(ctx, rawIDToken)
		if err != nil {
			return provider.Identity{}, fmt.Errorf("[google FetchIdentity] ID token verification failed: %w", err)
		}
		if err := idToken.Claims(&claims); err != nil {
			return provider.Identity{}, fmt.Errorf("[google FetchIdentity] failed to extract claims: %w", err)
		}
		if claims.Email != "" {
			return provider.Identity{Subject: claims.Sub, Email: claims.Email, EmailVerified: claims.EmailVerified}, nil
		}
	}

	info, err := op.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return provider.Identity{}, fmt.Errorf("[google FetchIdentity] userinfo: %w", err)
	}
	return provider.Identity{Subject: info.Subject, Email: info.Email, EmailVerified: info.EmailVerified}, nil
}

func (p *Provider) CreateEvent(ctx context.Context, tok *oauth2.Token, event provider.Event) (provider.CreatedEvent, error) {
	ctx = p.clientContext(ctx)
	ts := p.oauth2Config.TokenSource(ctx, tok)

	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if p.calendarURL != "" {
		opts = append(opts, option.WithEndpoint(p.calendarURL))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return provider.CreatedEvent{}, fmt.Errorf("[google CreateEvent] calendar client: %w", err)
	}

	created, err := svc.Events.Insert(event.CalendarID, &calendar.Event{
		Summary: event.Summary,
		Start:   &calendar.EventDateTime{DateTime: event.Start.UTC().Format("2006-01-02T15:04:05.000Z07:00")},
		End:     &calendar.EventDateTime{DateTime: event.End.UTC().Format("2006-01-02T15:04:05.000Z07:00")},
	}).Context(ctx).Do()
	if err != nil {
		return provider.CreatedEvent{}, classifyError(err)
	}

	result := provider.CreatedEvent{ID: created.Id, HTMLLink: created.HtmlLink, Credential: tok}
	if current, err := ts.Token(); err == nil {
		result.Credential = current
	}
	return result, nil
}

// Revoke revokes the grant, preferring the refresh token since revoking it
// also invalidates the access tokens minted from it.
func (p *Provider) Revoke(ctx context.Context, tok *oauth2.Token) error {
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}
	if value == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", value)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("[google Revoke] %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[google Revoke] %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("[google Revoke] unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (p *Provider) getOidcProvider(ctx context.Context) (*oidc.Provider, error) {
	p.oidcLock.RLock()
	op := p.oidcProvider
	p.oidcLock.RUnlock()
	if op != nil {
		return op, nil
	}

	op, err := oidc.NewProvider(ctx, p.issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	p.oidcLock.Lock()
	p.oidcProvider = op
	p.oidcLock.Unlock()
	return op, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), p.httpClient)
}

// classifyError separates grants that need a fresh consent from everything
// else. A refresh that fails with invalid_grant means the user revoked access.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden && isScopeFailure(apiErr) {
		return fmt.Errorf("%s: %w", apiErr.Message, provider.ErrInsufficientPermission)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
		return fmt.Errorf("refresh rejected: %w", provider.ErrInsufficientPermission)
	}

	if apiErr != nil && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}

func isScopeFailure(apiErr *googleapi.Error) bool {
	msg := strings.ToLower(apiErr.Message)
	if strings.Contains(msg, "insufficient permission") || strings.Contains(msg, "insufficient authentication scopes") {
		return true
	}
	for _, item := range apiErr.Errors {
		if item.Reason == "insufficientPermissions" || strings.Contains(strings.ToLower(item.Message), "insufficient permission") {
			return true
		}
	}
	return false
}
