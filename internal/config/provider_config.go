package config

import "time"

const DefaultEmbedURL = "https://calendar.google.com/calendar/embed?showTitle=0&showTabs=0&showCalendars=0"

type ProviderConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetTargetCalendarID() string
	GetEmbedURL() string
	GetAllowedEmails() []string
	GetEventDuration() time.Duration
	GetRevokeOnLogout() bool
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Provider) GetClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (Provider) GetRedirectURI() string {
	return GetEnv("GOOGLE_REDIRECT_URI", "")
}

func (Provider) GetTargetCalendarID() string {
	return GetEnv("GOOGLE_TARGET_CALENDAR_ID", "primary")
}

func (Provider) GetEmbedURL() string {
	return GetEnv("GOOGLE_CALENDAR_EMBED_URL", DefaultEmbedURL)
}

// GetAllowedEmails returns the raw allow-list entries; normalisation is the
// access policy's job.
func (Provider) GetAllowedEmails() []string {
	return SplitList(GetEnv("ALLOWED_GOOGLE_EMAILS", ""))
}

func (Provider) GetEventDuration() time.Duration {
	return GetEnvDuration("EVENT_DURATION", time.Hour)
}

func (Provider) GetRevokeOnLogout() bool {
	return GetEnvBool("REVOKE_ON_LOGOUT", false)
}

// MissingProviderSettings lists the provider variables that are unset.
func MissingProviderSettings(c ProviderConfig) []string {
	var missing []string
	if c.GetClientID() == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.GetClientSecret() == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if c.GetRedirectURI() == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URI")
	}
	return missing
}
