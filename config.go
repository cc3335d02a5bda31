package session

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/errors/v5"
)

// Config captures the environment configuration for the subsystem. It is the
// deployment-facing counterpart to the functional options: composition code
// loads it once and feeds the constructors.
type Config struct {
	IssuerURL             string        `env:"IDP_ISSUER_URL,required"`
	ClientID              string        `env:"IDP_CLIENT_ID,required"`
	ClientSecret          string        `env:"IDP_CLIENT_SECRET"`
	APIBaseURL            string        `env:"API_BASE_URL,required"`
	LoginURL              string        `env:"LOGIN_URL" envDefault:"/login"`
	PasswordResetRedirect string        `env:"PASSWORD_RESET_REDIRECT" envDefault:"/reset-password"`
	SafetyTimeout         time.Duration `env:"SESSION_SAFETY_TIMEOUT" envDefault:"15s"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, errors.Wrap(err, "env.Parse()")
	}

	return config, nil
}

// Options returns the functional options expressed by the config.
func (c *Config) Options() []Option {
	return []Option{
		WithLoginURL(c.LoginURL),
		WithPasswordResetRedirect(c.PasswordResetRedirect),
		WithSafetyTimeout(c.SafetyTimeout),
	}
}
