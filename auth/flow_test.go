package auth_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomwright0/dustin-schedule/access"
	"github.com/tomwright0/dustin-schedule/auth"
	apperrors "github.com/tomwright0/dustin-schedule/internal/errors"
	"github.com/tomwright0/dustin-schedule/provider/providerfake"
	"github.com/tomwright0/dustin-schedule/sessions/memory"
)

const (
	aliceCode  = "code-alice"
	aliceEmail = "alice@example.com"
	bobCode    = "code-bob"
	bobEmail   = "bob@example.com"
)

type flowFixture struct {
	provider *providerfake.FakeProvider
	repo     *memory.InMemoryRepo
	flow     *auth.Flow
}

func setupFlow(t *testing.T, allowList []string, options ...auth.FlowOption) *flowFixture {
	t.Helper()
	fp := providerfake.NewFakeProvider().WithIdentity(aliceCode, aliceEmail).WithIdentity(bobCode, bobEmail)
	repo := memory.NewInMemoryRepo(time.Hour)
	flow, err := auth.NewFlow(fp, access.NewPolicy(allowList), repo, options...)
	require.NoError(t, err)
	return &flowFixture{provider: fp, repo: repo, flow: flow}
}

func TestNewFlow_RequiresDependencies(t *testing.T) {
	_, err := auth.NewFlow(nil, access.Policy{}, memory.NewInMemoryRepo(time.Hour))
	require.Error(t, err)
	_, err = auth.NewFlow(providerfake.NewFakeProvider(), access.Policy{}, nil)
	require.Error(t, err)
}

func TestBeginSignIn(t *testing.T) {
	f := setupFlow(t, nil)
	u, err := url.Parse(f.flow.BeginSignIn("state-1"))
	require.NoError(t, err)
	require.Equal(t, "state-1", u.Query().Get("state"))
	require.Equal(t, "consent", u.Query().Get("prompt"))
	require.Equal(t, "offline", u.Query().Get("access_type"))
}

func TestCompleteSignIn_AllowedIdentity(t *testing.T) {
	ctx := context.Background()
	f := setupFlow(t, []string{aliceEmail}, auth.WithSessionIDGenerator(func() string { return "sid-1" }))

	sessionID, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: aliceCode})
	require.NoError(t, err)
	require.Equal(t, "sid-1", sessionID)

	status, err := f.flow.Status(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, auth.Status{Authenticated: true, Email: aliceEmail}, status)

	s, err := f.repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, "access-"+aliceCode, s.Token.AccessToken)
	require.Equal(t, "refresh-"+aliceCode, s.Token.RefreshToken)
}

func TestCompleteSignIn_ForbiddenIdentity(t *testing.T) {
	ctx := context.Background()
	f := setupFlow(t, []string{aliceEmail}, auth.WithSessionIDGenerator(func() string { return "sid-bob" }))

	sessionID, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: bobCode})
	require.ErrorIs(t, err, apperrors.ErrForbiddenIdentity)
	require.Empty(t, sessionID)

	_, err = f.repo.Get(ctx, "sid-bob")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestCompleteSignIn_MissingCode(t *testing.T) {
	f := setupFlow(t, nil)
	_, err := f.flow.CompleteSignIn(context.Background(), auth.Callback{})
	require.ErrorIs(t, err, apperrors.ErrMissingCode)
}

func TestCompleteSignIn_ExchangeFailure(t *testing.T) {
	f := setupFlow(t, nil)
	f.provider.FailExchange(errors.New("oauth2: invalid_grant"))

	_, err := f.flow.CompleteSignIn(context.Background(), auth.Callback{Code: aliceCode})
	require.ErrorIs(t, err, apperrors.ErrAuthExchange)

	var exchangeErr *apperrors.AuthExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, "oauth2: invalid_grant", exchangeErr.Message)
}

func TestCompleteSignIn_UnknownCode(t *testing.T) {
	f := setupFlow(t, nil)
	_, err := f.flow.CompleteSignIn(context.Background(), auth.Callback{Code: "nope"})
	require.ErrorIs(t, err, apperrors.ErrAuthExchange)
}

func TestCompleteSignIn_EmptyAllowListAllowsAnyone(t *testing.T) {
	f := setupFlow(t, nil)
	sessionID, err := f.flow.CompleteSignIn(context.Background(), auth.Callback{Code: bobCode})
	require.NoError(t, err)

	status, err := f.flow.Status(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, bobEmail, status.Email)
}

func TestCompleteSignIn_IdentityWithoutEmail(t *testing.T) {
	ctx := context.Background()
	f := setupFlow(t, nil, auth.WithSessionIDGenerator(func() string { return "sid-1" }))
	f.provider.WithIdentity("code-anon", "")

	sessionID, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: "code-anon"})
	require.ErrorIs(t, err, apperrors.ErrAuthExchange)
	require.Empty(t, sessionID)
	require.Equal(t, 0, f.repo.Count())

	status, err := f.flow.Status(ctx, "sid-1")
	require.NoError(t, err)
	require.False(t, status.Authenticated)
}

func TestCompleteSignIn_ReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	ids := []string{"sid-1", "sid-2"}
	f := setupFlow(t, nil, auth.WithSessionIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	first, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: aliceCode})
	require.NoError(t, err)
	second, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: aliceCode, PreviousSessionID: first})
	require.NoError(t, err)
	require.Equal(t, "sid-2", second)

	status, err := f.flow.Status(ctx, first)
	require.NoError(t, err)
	require.False(t, status.Authenticated)
}

func TestStatus_Unauthenticated(t *testing.T) {
	f := setupFlow(t, nil)
	for _, id := range []string{"", "missing"} {
		status, err := f.flow.Status(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, auth.Status{}, status)
	}
}

func TestSession_NotAuthenticated(t *testing.T) {
	f := setupFlow(t, nil)
	_, err := f.flow.Session(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	_, err = f.flow.Session(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestSignOut_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := setupFlow(t, nil)
	sessionID, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: aliceCode})
	require.NoError(t, err)

	require.NoError(t, f.flow.SignOut(ctx, sessionID))
	require.NoError(t, f.flow.SignOut(ctx, sessionID))
	require.NoError(t, f.flow.SignOut(ctx, ""))

	status, err := f.flow.Status(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, status.Authenticated)
	require.Empty(t, f.provider.Revoked())
}

func TestSignOut_Revokes(t *testing.T) {
	ctx := context.Background()
	f := setupFlow(t, nil, auth.WithRevokeOnSignOut(true))
	sessionID, err := f.flow.CompleteSignIn(ctx, auth.Callback{Code: aliceCode})
	require.NoError(t, err)

	require.NoError(t, f.flow.SignOut(ctx, sessionID))
	require.Len(t, f.provider.Revoked(), 1)
	require.Equal(t, "refresh-"+aliceCode, f.provider.Revoked()[0].RefreshToken)

	require.NoError(t, f.flow.SignOut(ctx, sessionID))
	require.Len(t, f.provider.Revoked(), 1)
}
