package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process-wide runtime configuration, bound from the
// environment. A .env file, if present, is loaded by main before this
// is processed.
type Config struct {
	Port int `envconfig:"PORT" default:"5000"`

	Judge0URL     string `envconfig:"JUDGE0_API_URL" default:"https://judge0-ce.p.rapidapi.com/submissions"`
	Judge0APIKey  string `envconfig:"JUDGE0_API_KEY"`
	Judge0APIHost string `envconfig:"JUDGE0_API_HOST" default:"judge0-ce.p.rapidapi.com"`

	// ExecuteTimeout bounds the whole round trip to the judge service.
	// The upstream call is synchronous (wait=true), so without this a
	// hung judge would hold the client's request open indefinitely.
	ExecuteTimeout time.Duration `envconfig:"EXECUTE_TIMEOUT" default:"30s"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// AllowCredentials reports whether cross-origin requests may carry
// credentials. Browsers reject credentialed requests against the
// wildcard origin, so credentials are only allowed when every origin
// is named explicitly.
func (c *Config) AllowCredentials() bool {
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return false
		}
	}
	return len(c.AllowedOrigins) > 0
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
