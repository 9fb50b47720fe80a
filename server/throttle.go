package server

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// throttle is the server-side counterpart of the client's cooldown gate: one
// scheduling request per key per window, armed when the request starts.
type throttle struct {
	c      *gocache.Cache
	window time.Duration
}

func newThrottle(window time.Duration) *throttle {
	return &throttle{c: gocache.New(window, time.Minute), window: window}
}

// acquire admits key or returns the time left on its lock.
func (t *throttle) acquire(key string) (time.Duration, bool) {
	if err := t.c.Add(key, struct{}{}, t.window); err == nil {
		return 0, true
	}
	_, expiresAt, found := t.c.GetWithExpiration(key)
	if !found {
		// expired between Add and lookup
		t.c.Set(key, struct{}{}, t.window)
		return 0, true
	}
	return time.Until(expiresAt), false
}
