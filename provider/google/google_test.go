package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomwright0/dustin-schedule/provider"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func newTestProvider(srv *httptest.Server) *Provider {
	return New(Config{ClientID: "client-1", ClientSecret: "secret-1", RedirectURL: "http://localhost:3000/auth/provider/callback"},
		WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}),
		WithIssuer(srv.URL),
		WithRevokeURL(srv.URL+"/revoke"),
		WithCalendarEndpoint(srv.URL+"/calendar/v3/"),
		WithHTTPClient(srv.Client()),
	)
}

func TestAuthCodeURL_ForcesConsentAndOffline(t *testing.T) {
	p := New(Config{ClientID: "client-1", RedirectURL: "http://localhost:3000/auth/provider/callback"})

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()

	require.Equal(t, "accounts.google.com", u.Host)
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Equal(t, "true", q.Get("include_granted_scopes"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "client-1", q.Get("client_id"))
	require.Contains(t, q.Get("scope"), scopeCalendarEvents)
	require.Contains(t, q.Get("scope"), scopeUserInfoEmail)
	require.Contains(t, q.Get("scope"), "openid")
}

func TestExchangeCodeAndUserInfo(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.FormValue("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Bad Request"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"sub":"123","email":"alice@example.com","email_verified":true}`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(srv)
	ctx := context.Background()

	_, err := p.ExchangeCode(ctx, "bad-code")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid_grant")

	tok, err := p.ExchangeCode(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, "at-1", tok.AccessToken)
	require.Equal(t, "rt-1", tok.RefreshToken)

	identity, err := p.FetchIdentity(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, provider.Identity{Subject: "123", Email: "alice@example.com", EmailVerified: true}, identity)
}

func TestCreateEvent(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendar/v3/calendars/{calendarID}/events", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.PathValue("calendarID") {
		case "readonly":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"Request had insufficient authentication scopes.","errors":[{"reason":"insufficientPermissions","message":"Insufficient Permission"}]}}`)
		case "broken":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Invalid start time.","errors":[{"reason":"invalid","message":"Invalid start time."}]}}`)
		default:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, _ = io.WriteString(w, `{"id":"evt-1","htmlLink":"https://calendar.google.com/event?eid=evt-1"}`)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(srv)
	tok := &oauth2.Token{AccessToken: "at-1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	event := provider.Event{CalendarID: "primary", Summary: "Vacuum Only", Start: start, End: start.Add(time.Hour)}

	created, err := p.CreateEvent(context.Background(), tok, event)
	require.NoError(t, err)
	require.Equal(t, "evt-1", created.ID)
	require.Equal(t, "https://calendar.google.com/event?eid=evt-1", created.HTMLLink)
	require.Equal(t, "at-1", created.Credential.AccessToken)
	require.Equal(t, "Vacuum Only", body["summary"])
	require.Equal(t, "2024-06-01T10:00:00.000Z", body["start"].(map[string]any)["dateTime"])
	require.Equal(t, "2024-06-01T11:00:00.000Z", body["end"].(map[string]any)["dateTime"])

	event.CalendarID = "readonly"
	_, err = p.CreateEvent(context.Background(), tok, event)
	require.ErrorIs(t, err, provider.ErrInsufficientPermission)

	event.CalendarID = "broken"
	_, err = p.CreateEvent(context.Background(), tok, event)
	require.Error(t, err)
	require.NotErrorIs(t, err, provider.ErrInsufficientPermission)
	require.Equal(t, "Invalid start time.", err.Error())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		permission bool
	}{
		{"insufficient permission message", &googleapi.Error{Code: 403, Message: "Insufficient Permission"}, true},
		{"scope reason", &googleapi.Error{Code: 403, Message: "Forbidden", Errors: []googleapi.ErrorItem{{Reason: "insufficientPermissions"}}}, true},
		{"other 403", &googleapi.Error{Code: 403, Message: "Calendar usage limits exceeded."}, false},
		{"insufficient permission but 401", &googleapi.Error{Code: 401, Message: "Insufficient Permission"}, false},
		{"revoked refresh token", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, true},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.permission, errors.Is(classifyError(tt.err), provider.ErrInsufficientPermission))
		})
	}
}

func TestRevoke(t *testing.T) {
	var revoked string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		revoked = r.FormValue("token")
	}))
	defer srv.Close()

	p := New(Config{}, WithRevokeURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, p.Revoke(context.Background(), &oauth2.Token{AccessToken: "at-1", RefreshToken: "rt-1"}))
	require.Equal(t, "rt-1", revoked)

	require.NoError(t, p.Revoke(context.Background(), &oauth2.Token{AccessToken: "at-2"}))
	require.Equal(t, "at-2", revoked)
}
