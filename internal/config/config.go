// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment
// variables.
type Config struct {
	ListenAddr        string
	DBPath            string
	APIBaseURL        string
	AccessToken       string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
}

// HasOAuthCredentials returns true when the OAuth client is fully
// configured. Without it the app runs in token-only mode: searches work
// unauthenticated (or with a seeded token) and reauthorization can only
// prompt the operator.
func (c *Config) HasOAuthCredentials() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// Load reads configuration from a .env file (if present) and environment
// variables, returning a validated Config. All variables are optional with
// defaults: GITSCOUT_LISTEN_ADDR (127.0.0.1:8080), GITSCOUT_DB_PATH
// (gitscout.db), GITSCOUT_API_BASE_URL (https://api.github.com).
// GITSCOUT_ACCESS_TOKEN seeds the auth provider; GITSCOUT_OAUTH_CLIENT_ID,
// GITSCOUT_OAUTH_CLIENT_SECRET, and GITSCOUT_OAUTH_REDIRECT_URL enable the
// authorization-code flow.
func Load() (*Config, error) {
	// A missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("GITSCOUT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "gitscout.db"
	if v, ok := os.LookupEnv("GITSCOUT_DB_PATH"); ok {
		dbPath = v
	}

	apiBaseURL := "https://api.github.com"
	if v, ok := os.LookupEnv("GITSCOUT_API_BASE_URL"); ok {
		apiBaseURL = v
	}
	u, err := url.Parse(apiBaseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("GITSCOUT_API_BASE_URL is not an absolute URL: %q", apiBaseURL)
	}

	return &Config{
		ListenAddr:        listenAddr,
		DBPath:            dbPath,
		APIBaseURL:        apiBaseURL,
		AccessToken:       os.Getenv("GITSCOUT_ACCESS_TOKEN"),
		OAuthClientID:     os.Getenv("GITSCOUT_OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("GITSCOUT_OAUTH_CLIENT_SECRET"),
		OAuthRedirectURL:  os.Getenv("GITSCOUT_OAUTH_REDIRECT_URL"),
	}, nil
}
