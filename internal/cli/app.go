package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomwright0/dustin-schedule/client"
	"github.com/tomwright0/dustin-schedule/cooldown"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/internal/utils"
	"github.com/tomwright0/dustin-schedule/scheduler"
)

// App runs user commands against one server through a single client, so
// every command shares one cooldown gate.
type App struct {
	client  *client.Client
	nowTime func() time.Time
	tick    time.Duration
}

func NewApp(c *client.Client) *App {
	return &App{client: c, nowTime: time.Now, tick: cooldown.DefaultTickInterval}
}

// resolveEventType maps shorthands to the exact event name; anything else is
// passed through for the server to reject.
func resolveEventType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vacuum", "vacuum only":
		return string(scheduler.VacuumOnly)
	case "full", "fullclean", "full clean", "clean":
		return string(scheduler.FullClean)
	}
	return s
}

// resolveStart parses at, where "" and "now" mean the current time.
func (a *App) resolveStart(at string) (time.Time, error) {
	at = strings.TrimSpace(at)
	if at == "" || strings.EqualFold(at, "now") {
		return a.nowTime(), nil
	}
	t, err := scheduler.ParseStartTime(at)
	if err != nil {
		return time.Time{}, &apperrors.InvalidRequestError{Field: "startDateTime", Reason: scheduler.ReasonInvalidTime}
	}
	return t, nil
}

func (a *App) isSignedIn(ctx context.Context) bool {
	st, err := a.client.Status(ctx)
	return err == nil && st.Authenticated
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.client.Status(ctx)
	if err != nil {
		printlnFn("Status failed:", err)
		return err
	}
	if !st.Authenticated {
		printlnFn("Not signed in. Sign in at", a.client.SignInURL())
		return nil
	}
	printlnFn("Signed in as", utils.Value(st.Email))
	return nil
}

func (a *App) SignIn(context.Context) error {
	printlnFn("Open this URL in a browser, then pass the", client.SessionCookieName, "cookie with --session:")
	printlnFn(a.client.SignInURL())
	return nil
}

func (a *App) Schedule(ctx context.Context, eventType, at string) error {
	start, err := a.resolveStart(at)
	if err != nil {
		printlnFn("Invalid date/time.")
		return err
	}

	ev, err := a.client.Schedule(ctx, resolveEventType(eventType), start)
	switch {
	case err == nil:
		printlnFn(ev.Message, ev.EventLink)
		return nil
	case apperrors.Is(err, apperrors.ErrCooldown):
		printlnFn(cooldownMessage(err))
	case apperrors.Is(err, cooldown.ErrInFlight):
		printlnFn("A request is already in progress.")
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		printlnFn("Not signed in. Sign in at", a.client.SignInURL())
	case apperrors.Is(err, apperrors.ErrPermissionRevoked):
		printlnFn(err.Error())
		printlnFn("Sign in again at", a.client.SignInURL())
	default:
		printlnFn("Error:", err)
	}
	return err
}

func cooldownMessage(err error) string {
	var cdErr *apperrors.CooldownError
	if apperrors.As(err, &cdErr) {
		return fmt.Sprintf("Please wait %ds before creating another event.", cdErr.SecondsLeft)
	}
	return err.Error()
}

// Wait shows the cooldown countdown until the gate unlocks.
func (a *App) Wait(ctx context.Context) error {
	locked := false
	a.client.Gate().Watch(ctx, a.tick, a.nowTime, func(secondsLeft int) {
		locked = true
		printlnFn(fmt.Sprintf("Wait %ds", secondsLeft))
	})
	if locked {
		printlnFn("Ready")
	} else {
		printlnFn("Ready, no cooldown active")
	}
	return ctx.Err()
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err)
		return err
	}
	printlnFn("Signed out")
	return nil
}

func (a *App) EmbedURL(ctx context.Context) error {
	u, err := a.client.EmbedURL(ctx)
	if err != nil {
		printlnFn("Failed to fetch embed URL:", err)
		return err
	}
	printlnFn(u)
	return nil
}
