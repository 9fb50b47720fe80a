// Package client talks to the scheduling server's JSON API. Scheduling goes
// through a process-wide cooldown gate so rejected attempts never reach the
// network.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomwright0/dustin-schedule/cooldown"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
)

// SessionCookieName must match the server's cookie.
const SessionCookieName = "dustin_session"

// Status mirrors GET /api/auth/status.
type Status struct {
	Authenticated bool    `json:"authenticated"`
	Email         *string `json:"email"`
}

// Event mirrors a successful POST /api/events.
type Event struct {
	Message   string `json:"message"`
	EventID   string `json:"eventId"`
	EventLink string `json:"eventLink"`
}

// APIError is a non-2xx reply; Err is the matching error class.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	session string
	http    *http.Client
	gate    *cooldown.Gate
	nowTime func() time.Time
}

// Option customises a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithSession sets the session cookie value obtained from a browser sign-in.
func WithSession(value string) Option {
	return func(cl *Client) { cl.session = value }
}

// WithGate shares a gate between clients.
func WithGate(g *cooldown.Gate) Option {
	return func(cl *Client) { cl.gate = g }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(cl *Client) { cl.nowTime = nowFunc }
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		gate:    cooldown.NewGate(cooldown.DefaultDuration),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Gate is the cooldown gate guarding Schedule.
func (c *Client) Gate() *cooldown.Gate {
	return c.gate
}

// Schedule submits one event. It is rejected locally while the gate is locked
// or another submission is in flight; otherwise the gate is armed once the
// server's answer (or a transport error) arrives.
func (c *Client) Schedule(ctx context.Context, eventType string, start time.Time) (Event, error) {
	if err := c.gate.Attempt(c.nowTime()); err != nil {
		return Event{}, err
	}
	defer func() { c.gate.Arm(c.nowTime()) }()

	body, err := json.Marshal(map[string]string{
		"type":          eventType,
		"startDateTime": start.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return Event{}, err
	}

	var ev Event
	if err := c.do(ctx, http.MethodPost, "/api/events", body, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, &s)
	return s, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) EmbedURL(ctx context.Context) (string, error) {
	var out struct {
		EmbedURL string `json:"embedUrl"`
	}
	err := c.do(ctx, http.MethodGet, "/api/embed-url", nil, &out)
	return out.EmbedURL, err
}

// SignInURL is where a browser starts the provider sign-in.
func (c *Client) SignInURL() string {
	return c.baseURL + "/auth/provider"
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.session})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error, Err: classify(resp.StatusCode)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func classify(status int) error {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrInvalidRequest
	case http.StatusUnauthorized:
		return apperrors.ErrNotAuthenticated
	case http.StatusForbidden:
		return apperrors.ErrPermissionRevoked
	case http.StatusTooManyRequests:
		return apperrors.ErrCooldown
	default:
		return apperrors.ErrProvider
	}
}
