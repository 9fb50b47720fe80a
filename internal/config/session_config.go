package config

import "time"

const (
	DefaultSessionSecret = "change-me"
	DefaultSessionMaxAge = 30 * 24 * time.Hour
)

type SessionConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetCookieSecure() bool
	GetSessionStore() string
	GetRedisAddr() string
	GetRedisDB() int
	GetServerCooldown() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", DefaultSessionSecret)
}

// GetMaxSessionAge falls back to the default for zero or negative values.
func (Session) GetMaxSessionAge() time.Duration {
	if d := GetEnvDuration("SESSION_MAX_AGE", DefaultSessionMaxAge); d > 0 {
		return d
	}
	return DefaultSessionMaxAge
}

func (Session) GetCookieSecure() bool {
	return GetEnvBool("COOKIE_SECURE", false)
}

// GetSessionStore is "memory" or "redis"
func (Session) GetSessionStore() string {
	return GetEnv("SESSION_STORE", "memory")
}

func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Session) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

// GetServerCooldown is the per-session server-side throttle; zero disables it.
func (Session) GetServerCooldown() time.Duration {
	return GetEnvDuration("SERVER_COOLDOWN", 0)
}
