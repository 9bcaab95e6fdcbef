package proxy

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for configuration values the environment does not set.
const (
	defaultPort        = "8080"
	defaultUpstreamURL = "https://api.groq.com/openai"
	defaultModel       = "llama-3.1-8b-instant"
	defaultTimeout     = 120 * time.Second
)

// Config is the relay server configuration. It is read once at startup and
// passed in by value; the server never consults the environment afterwards.
type Config struct {
	// Address to listen on (e.g. ":8080")
	ListenAddr string

	// Base URL of the upstream inference provider
	UpstreamURL string

	// Bearer credential sent on every upstream call. Required.
	APIKey string

	// Model substituted when the caller omits one
	DefaultModel string

	// Upstream timeout. Bounds the full round trip for buffered requests
	// and the response-header wait for streaming ones.
	Timeout time.Duration

	// Deployment environment. "production" suppresses upstream error
	// bodies in error envelopes.
	Environment string
}

// FromEnv builds a Config from the process environment, loading a .env file
// first when one is present. A missing UPSTREAM_API_KEY is a configuration
// error: the process must refuse to start without a credential.
func FromEnv() (Config, error) {
	// Missing .env is fine; the variables may come from the real environment.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:   ":" + envOr("PORT", defaultPort),
		UpstreamURL:  envOr("UPSTREAM_URL", defaultUpstreamURL),
		APIKey:       os.Getenv("UPSTREAM_API_KEY"),
		DefaultModel: envOr("DEFAULT_MODEL", defaultModel),
		Timeout:      defaultTimeout,
		Environment:  envOr("FERRY_ENV", "production"),
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("UPSTREAM_API_KEY is not set")
	}

	if raw := os.Getenv("UPSTREAM_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT must be a positive number of seconds, got %q", raw)
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// IncludeErrorDetails reports whether upstream error bodies may be echoed
// back to callers inside error envelopes.
func (c Config) IncludeErrorDetails() bool {
	return c.Environment != "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
