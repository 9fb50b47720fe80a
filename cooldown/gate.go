// Package cooldown implements the client-side lockout that spaces out
// scheduling attempts.
package cooldown

import (
	"context"
	"math"
	"sync"
	"time"

	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
)

const (
	DefaultDuration     = 15 * time.Second
	DefaultTickInterval = 250 * time.Millisecond
)

// State of the gate.
type State int

const (
	Idle State = iota
	InFlight
	Locked
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Locked:
		return "locked"
	default:
		return "idle"
	}
}

// ErrInFlight rejects an attempt while a previous one has not finished.
var ErrInFlight = apperrors.New("a scheduling request is already in progress")

// Gate is a process-wide lockout. Attempt lets one caller through at a time;
// Arm locks the gate for a fixed duration after every terminal outcome.
type Gate struct {
	mu       sync.Mutex
	duration time.Duration
	state    State
	until    time.Time
}

// NewGate creates an idle gate that locks for d after each attempt.
func NewGate(d time.Duration) *Gate {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Gate{duration: d}
}

// Duration is the lock applied by Arm.
func (g *Gate) Duration() time.Duration {
	return g.duration
}

// Attempt admits the caller, or rejects it with ErrInFlight or a
// CooldownError carrying the whole seconds left. An admitted caller must call
// Arm once its request reaches a terminal outcome.
func (g *Gate) Attempt(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire(now)
	switch g.state {
	case InFlight:
		return ErrInFlight
	case Locked:
		return &apperrors.CooldownError{SecondsLeft: secondsLeft(g.until.Sub(now))}
	}
	g.state = InFlight
	return nil
}

// Arm locks the gate until now+duration, whatever the outcome of the attempt.
func (g *Gate) Arm(now time.Time) {
	g.ArmFor(now, g.duration)
}

// ArmFor locks the gate until now+d.
func (g *Gate) ArmFor(now time.Time, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Locked
	g.until = now.Add(d)
}

// Tick recomputes the remaining lock time, moving Locked to Idle once the
// deadline has passed.
func (g *Gate) Tick(now time.Time) (State, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire(now)
	if g.state == Locked {
		return g.state, g.until.Sub(now)
	}
	return g.state, 0
}

// Watch calls onTick every interval with the remaining whole seconds until
// the lock expires, then returns. It returns immediately when the gate is not
// locked and stops early when ctx is done.
func (g *Gate) Watch(ctx context.Context, interval time.Duration, now func() time.Time, onTick func(secondsLeft int)) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if now == nil {
		now = time.Now
	}

	report := func() bool {
		state, remaining := g.Tick(now())
		if state != Locked {
			return false
		}
		onTick(secondsLeft(remaining))
		return true
	}
	if !report() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !report() {
				return
			}
		}
	}
}

func (g *Gate) expire(now time.Time) {
	if g.state == Locked && !now.Before(g.until) {
		g.state = Idle
		g.until = time.Time{}
	}
}

func secondsLeft(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
