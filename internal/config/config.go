package config

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	SessionConfig
	IdentityConfig
	OIDCConfig
	DevServerConfig
}

type mainConfig struct {
	EnvVars
	Session
	Identity
	OIDC
	DevServer
}

// New returns the environment backed configuration. A .env file in the working
// directory is loaded first when present; variables already set take precedence.
func New() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using environment variables")
	}
	return mainConfig{}
}
