package sessions

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	purposeSession = "session"
	purposeState   = "oauth-state"

	// StateTTL bounds how long a consent round trip may take.
	StateTTL = 10 * time.Minute

	// DefaultMaxAge applies when NewCodec gets a non-positive maxAge.
	DefaultMaxAge = 30 * 24 * time.Hour
)

type claims struct {
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

// Codec signs session ids for the cookie and mints the stateless OAuth state
// parameter. Both are HS256 tokens keyed from the configured secret.
type Codec struct {
	key     []byte
	maxAge  time.Duration
	nowTime func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) { c.nowTime = nowFunc }
}

// NewCodec derives the signing key from secret with HKDF-SHA256 so short
// operator-supplied secrets are not used as raw HMAC keys.
func NewCodec(secret string, maxAge time.Duration, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("[NewCodec] secret is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("dustin-schedule session v1")), key); err != nil {
		return nil, fmt.Errorf("[NewCodec] derive key: %w", err)
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	c := &Codec{key: key, maxAge: maxAge, nowTime: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// MaxAge is the lifetime of signed session cookies.
func (c *Codec) MaxAge() time.Duration {
	return c.maxAge
}

// EncodeSessionID returns the cookie value for sessionID.
func (c *Codec) EncodeSessionID(sessionID string) (string, error) {
	return c.sign(purposeSession, sessionID, c.maxAge)
}

// DecodeSessionID verifies a cookie value and returns the session id.
func (c *Codec) DecodeSessionID(value string) (string, error) {
	return c.verify(purposeSession, value)
}

// NewState mints a signed, short-lived OAuth state value.
func (c *Codec) NewState() (string, error) {
	return c.sign(purposeState, uuid.NewString(), StateTTL)
}

// VerifyState checks a state value returned by the provider.
func (c *Codec) VerifyState(state string) error {
	_, err := c.verify(purposeState, state)
	return err
}

func (c *Codec) sign(purpose, subject string, ttl time.Duration) (string, error) {
	now := c.nowTime()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[Codec sign] %w", err)
	}
	return signed, nil
}

func (c *Codec) verify(purpose, value string) (string, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(value, &parsed, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.nowTime), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("[Codec verify] %w", err)
	}
	if parsed.Purpose != purpose || parsed.Subject == "" {
		return "", fmt.Errorf("[Codec verify] token is not a %s token", purpose)
	}
	return parsed.Subject, nil
}
