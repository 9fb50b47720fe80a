package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetStaticDir() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Provider
	Session
}

// New loads an optional .env file and returns a Config backed by the process
// environment. Variables already set in the environment win over .env values.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}

// FromEnvFile is New with an explicit env file; a missing file is an error.
func FromEnvFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, err
	}
	return mainConfig{}, nil
}
