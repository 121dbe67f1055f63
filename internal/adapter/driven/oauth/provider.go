// Package oauth implements the AuthProvider port with a GitHub
// authorization-code grant. The interactive browser flow stays outside the
// core: this adapter holds the process-wide token, hands out the
// authorization URL, and exchanges callback codes for tokens.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthProvider = (*Provider)(nil)

// Provider holds the current GitHub access token and brokers
// reauthorization. Reauthorization requests are published on a channel so
// the presentation layer can prompt the user without the core knowing how.
type Provider struct {
	cfg        *oauth2.Config
	apiBaseURL string // "" in production; set by tests to an httptest server

	mu    sync.Mutex
	token string

	reauthCh chan struct{}
}

// NewProvider creates a Provider for the GitHub endpoint. seedToken may be
// "" when no token is known yet; clientID/clientSecret may be "" to run in
// token-only mode where Exchange always fails and operators supply tokens
// via configuration.
func NewProvider(clientID, clientSecret, redirectURL, seedToken string) *Provider {
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     githuboauth.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"public_repo"},
		},
		token:    seedToken,
		reauthCh: make(chan struct{}, 1),
	}
}

// NewProviderWithEndpoints is intended for testing, allowing the OAuth
// endpoint and the API base URL used for token validation to point at an
// httptest server.
func NewProviderWithEndpoints(cfg *oauth2.Config, apiBaseURL, seedToken string) *Provider {
	return &Provider{
		cfg:        cfg,
		apiBaseURL: apiBaseURL,
		token:      seedToken,
		reauthCh:   make(chan struct{}, 1),
	}
}

// CurrentAccessToken returns the token currently held, or "".
func (p *Provider) CurrentAccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Reauthorize drops the rejected token and signals the external flow. The
// signal channel has capacity one, so repeated rejections collapse into a
// single pending prompt.
func (p *Provider) Reauthorize(_ context.Context) {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()

	select {
	case p.reauthCh <- struct{}{}:
	default:
	}

	slog.Info("reauthorization requested")
}

// ReauthorizationRequests returns the channel on which reauthorization
// signals are delivered.
func (p *Provider) ReauthorizationRequests() <-chan struct{} {
	return p.reauthCh
}

// AuthCodeURL returns the browser URL that starts the code grant.
func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// Exchange swaps a callback code for an access token, verifies the token by
// fetching the authenticated user, and installs it as the current token.
func (p *Provider) Exchange(ctx context.Context, code string) error {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	login, err := p.validate(ctx, tok.AccessToken)
	if err != nil {
		return fmt.Errorf("validate access token: %w", err)
	}

	p.mu.Lock()
	p.token = tok.AccessToken
	p.mu.Unlock()

	slog.Info("access token installed", "login", login)
	return nil
}

// validate confirms the token works by fetching the authenticated user.
func (p *Provider) validate(ctx context.Context, token string) (string, error) {
	client := gh.NewClient(nil).WithAuthToken(token)

	if p.apiBaseURL != "" {
		// go-github requires a trailing slash on the base URL.
		base := p.apiBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse api base URL: %w", err)
		}
		client.BaseURL = u
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return "", err
	}

	return user.GetLogin(), nil
}
