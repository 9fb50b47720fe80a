// Package scheduler creates housekeeping events on the shared calendar on
// behalf of a signed-in session.
package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/provider"
	"github.com/tomwright0/dustin-schedule/sessions"
)

// EventType is the closed set of events that can be scheduled.
type EventType string

const (
	VacuumOnly EventType = "Vacuum Only"
	FullClean  EventType = "Full Clean"

	DefaultDuration = time.Hour

	// ReasonInvalidTime is the InvalidRequestError reason for an unparseable start.
	ReasonInvalidTime = "not a valid date/time"
)

// EventTypes lists every valid EventType.
var EventTypes = []EventType{VacuumOnly, FullClean}

// ParseEventType accepts only the exact event names.
func ParseEventType(s string) (EventType, bool) {
	for _, t := range EventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Request is one scheduling action as submitted by the browser.
type Request struct {
	Type          string `json:"type"`
	StartDateTime string `json:"startDateTime"`
}

// Result identifies the created event.
type Result struct {
	EventID   string
	EventLink string
	Start     time.Time
	End       time.Time
}

// Scheduler validates requests, attaches the session's credential and makes
// exactly one create call per invocation; creation is not idempotent so
// nothing is retried here.
type Scheduler struct {
	provider   provider.CalendarProvider
	sessions   sessions.Repo
	calendarID string
	duration   time.Duration
}

// Option defines a function type to modify the Scheduler instance.
type Option func(*Scheduler)

// WithDuration sets the offset from start to end.
func WithDuration(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.duration = d
		}
	}
}

func New(p provider.CalendarProvider, repo sessions.Repo, calendarID string, options ...Option) (*Scheduler, error) {
	if p == nil {
		return nil, apperrors.New("[scheduler New] provider is required")
	}
	if repo == nil {
		return nil, apperrors.New("[scheduler New] sessions repo is required")
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	s := &Scheduler{provider: p, sessions: repo, calendarID: calendarID, duration: DefaultDuration}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Schedule creates the requested event for sessionID.
//
// A session without a credential yields ErrNotAuthenticated. Validation
// failures yield an InvalidRequestError before the provider is contacted. A
// provider permission failure destroys the session and yields
// ErrPermissionRevoked; any other provider failure yields a ProviderError.
func (s *Scheduler) Schedule(ctx context.Context, sessionID string, req Request) (Result, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	eventType, start, err := Validate(req)
	if err != nil {
		return Result{}, err
	}
	end := start.Add(s.duration)

	created, err := s.provider.CreateEvent(ctx, session.Token, provider.Event{
		CalendarID: s.calendarID,
		Summary:    string(eventType),
		Start:      start,
		End:        end,
	})
	if apperrors.Is(err, provider.ErrInsufficientPermission) {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			log.Err(delErr).Str("email", session.Email).Msg("Failed to destroy session after permission failure")
		}
		return Result{}, apperrors.Wrapf(apperrors.ErrPermissionRevoked, "%s", err.Error())
	}
	if err != nil {
		return Result{}, &apperrors.ProviderError{Message: err.Error()}
	}

	s.persistRefreshedCredential(ctx, sessionID, session, created)

	return Result{EventID: created.ID, EventLink: created.HTMLLink, Start: start, End: end}, nil
}

// Validate checks the event type and start time of req.
func Validate(req Request) (EventType, time.Time, error) {
	eventType, ok := ParseEventType(req.Type)
	if !ok {
		return "", time.Time{}, &apperrors.InvalidRequestError{
			Field:  "type",
			Reason: "expected 'Vacuum Only' or 'Full Clean'",
		}
	}
	if strings.TrimSpace(req.StartDateTime) == "" {
		return "", time.Time{}, &apperrors.InvalidRequestError{Field: "startDateTime", Reason: "is required"}
	}
	start, err := ParseStartTime(req.StartDateTime)
	if err != nil {
		return "", time.Time{}, &apperrors.InvalidRequestError{Field: "startDateTime", Reason: ReasonInvalidTime}
	}
	return eventType, start, nil
}

// Layouts without a zone are read as UTC.
var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseStartTime parses an ISO-8601 instant.
func ParseStartTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range startLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (s *Scheduler) loadSession(ctx context.Context, sessionID string) (sessions.Session, error) {
	if sessionID == "" {
		return sessions.Session{}, apperrors.ErrNotAuthenticated
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return sessions.Session{}, apperrors.ErrNotAuthenticated
	}
	if err != nil {
		return sessions.Session{}, apperrors.Wrapf(err, "[Scheduler Schedule] load session")
	}
	if !session.Authenticated() {
		return sessions.Session{}, apperrors.ErrNotAuthenticated
	}
	return session, nil
}

// persistRefreshedCredential replaces the stored token bundle when the
// provider refreshed it during the call.
func (s *Scheduler) persistRefreshedCredential(ctx context.Context, sessionID string, session sessions.Session, created provider.CreatedEvent) {
	if created.Credential == nil || created.Credential.AccessToken == session.Token.AccessToken {
		return
	}
	refreshed := *created.Credential
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = session.Token.RefreshToken
	}
	session.Token = &refreshed
	if err := s.sessions.Upsert(ctx, sessionID, session); err != nil {
		log.Err(err).Str("email", session.Email).Msg("Failed to persist refreshed credential")
	}
}
