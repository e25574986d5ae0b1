package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every server environment variable.
const EnvPrefix = "MURMUR"

// Backends.
const (
	BackendOpenAI = "openai"
	BackendEcho   = "echo"
)

// Server holds murmurd's configuration, read from MURMUR_* variables.
type Server struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	Backend        string   `envconfig:"BACKEND" default:"openai"`
	OpenAIAPIKey   string   `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string   `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model          string   `envconfig:"MODEL" default:"gpt-4o"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	RateLimit      float64  `envconfig:"RATE_LIMIT" default:"5"`
	RateBurst      int      `envconfig:"RATE_BURST" default:"10"`
	LogPath        string   `envconfig:"LOG_PATH"`
}

// LoadServer loads envFile (if present) into the environment, then processes
// MURMUR_* variables. An empty envFile means ".env"; a missing default file is
// not an error, an explicitly named one is.
func LoadServer(envFile string) (*Server, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var c Server
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("unable to get envconfig: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks backend settings.
func (c *Server) Validate() error {
	switch c.Backend {
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("MURMUR_OPENAI_API_KEY is required for the openai backend")
		}
	case BackendEcho:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rate limit and burst must not be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c *Server) Addr() string {
	return ":" + c.Port
}
