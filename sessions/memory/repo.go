package memory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/sessions"
)

var _ sessions.Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps sessions in process memory; entries expire after ttl.
type InMemoryRepo struct {
	c *gocache.Cache
}

// NewInMemoryRepo creates a session repository whose entries live for ttl.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{c: gocache.New(ttl, time.Minute)}
}

// Upsert creates or replaces a session
func (r *InMemoryRepo) Upsert(_ context.Context, sessionID string, session sessions.Session) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	r.c.SetDefault(sessionID, session)
	return nil
}

// Get retrieves a session by id
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (sessions.Session, error) {
	if sessionID == "" {
		return sessions.Session{}, apperrors.ErrSessionNotFound
	}
	v, ok := r.c.Get(sessionID)
	if !ok {
		return sessions.Session{}, apperrors.ErrSessionNotFound
	}
	session, ok := v.(sessions.Session)
	if !ok {
		return sessions.Session{}, apperrors.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session; deleting a missing session is not an error
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.c.Delete(sessionID)
	return nil
}

// Count returns the number of unexpired sessions
func (r *InMemoryRepo) Count() int {
	return r.c.ItemCount()
}
