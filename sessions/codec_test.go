package sessions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomwright0/dustin-schedule/sessions"
)

func TestCodec_SessionIDRoundTrip(t *testing.T) {
	codec, err := sessions.NewCodec("s3cret", time.Hour)
	require.NoError(t, err)

	value, err := codec.EncodeSessionID("session-1")
	require.NoError(t, err)
	require.NotContains(t, value, "s3cret")

	id, err := codec.DecodeSessionID(value)
	require.NoError(t, err)
	require.Equal(t, "session-1", id)
}

func TestCodec_RejectsTampering(t *testing.T) {
	codec, err := sessions.NewCodec("s3cret", time.Hour)
	require.NoError(t, err)
	other, err := sessions.NewCodec("different", time.Hour)
	require.NoError(t, err)

	value, err := other.EncodeSessionID("session-1")
	require.NoError(t, err)
	_, err = codec.DecodeSessionID(value)
	require.Error(t, err)

	_, err = codec.DecodeSessionID("not-a-token")
	require.Error(t, err)
}

func TestCodec_PurposesAreNotInterchangeable(t *testing.T) {
	codec, err := sessions.NewCodec("s3cret", time.Hour)
	require.NoError(t, err)

	state, err := codec.NewState()
	require.NoError(t, err)
	require.NoError(t, codec.VerifyState(state))
	_, err = codec.DecodeSessionID(state)
	require.Error(t, err)

	cookie, err := codec.EncodeSessionID("session-1")
	require.NoError(t, err)
	require.Error(t, codec.VerifyState(cookie))
}

func TestCodec_Expiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	codec, err := sessions.NewCodec("s3cret", time.Hour, sessions.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	cookie, err := codec.EncodeSessionID("session-1")
	require.NoError(t, err)
	state, err := codec.NewState()
	require.NoError(t, err)

	now = now.Add(sessions.StateTTL + time.Minute)
	require.Error(t, codec.VerifyState(state))
	_, err = codec.DecodeSessionID(cookie)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = codec.DecodeSessionID(cookie)
	require.Error(t, err)
}

func TestNewCodec_NonPositiveMaxAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	codec, err := sessions.NewCodec("s3cret", 0, sessions.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)
	require.Equal(t, sessions.DefaultMaxAge, codec.MaxAge())

	cookie, err := codec.EncodeSessionID("session-1")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	id, err := codec.DecodeSessionID(cookie)
	require.NoError(t, err)
	require.Equal(t, "session-1", id)
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := sessions.NewCodec("", time.Hour)
	require.Error(t, err)
}

func TestSession_Authenticated(t *testing.T) {
	require.False(t, sessions.Session{}.Authenticated())
	require.False(t, sessions.Session{Email: "alice@example.com"}.Authenticated())
}
