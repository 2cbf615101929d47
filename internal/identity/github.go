// Package identity talks to external identity providers.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	apperrors "storefront/internal/errors"
	"storefront/internal/service"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHub authenticates users through GitHub's OAuth2 web flow.
type GitHub struct {
	oauth   *oauth2.Config
	apiBase string
	timeout time.Duration
}

// Option customises a GitHub provider.
type Option func(*GitHub)

// WithEndpoints points the provider at different OAuth and API hosts.
func WithEndpoints(endpoint oauth2.Endpoint, apiBase string) Option {
	return func(g *GitHub) {
		g.oauth.Endpoint = endpoint
		g.apiBase = strings.TrimRight(apiBase, "/")
	}
}

// NewGitHub creates a provider for the registered OAuth app.
func NewGitHub(clientID, clientSecret, callbackURL string, opts ...Option) *GitHub {
	g := &GitHub{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email"},
		},
		apiBase: defaultGitHubAPI,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL returns the provider URL the browser is sent to.
func (g *GitHub) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Authenticate exchanges an authorization code for the user's profile. Any
// provider failure is reported as ErrUpstreamIdentity.
func (g *GitHub) Authenticate(ctx context.Context, code string) (service.ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return service.ExternalProfile{}, fmt.Errorf("%w: exchange code: %v", apperrors.ErrUpstreamIdentity, err)
	}
	client := g.oauth.Client(ctx, token)

	var user struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := g.getJSON(ctx, client, "/user", &user); err != nil {
		return service.ExternalProfile{}, err
	}

	email := user.Email
	if email == "" {
		if email, err = g.primaryEmail(ctx, client); err != nil {
			return service.ExternalProfile{}, err
		}
	}

	return service.ExternalProfile{
		Email:       email,
		DisplayName: user.Name,
		Username:    user.Login,
	}, nil
}

// primaryEmail picks the primary verified address, or the first verified one.
func (g *GitHub) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return "", err
	}

	var fallback string
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email, nil
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("%w: no verified email", apperrors.ErrUpstreamIdentity)
	}
	return fallback, nil
}

func (g *GitHub) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUpstreamIdentity, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", apperrors.ErrUpstreamIdentity, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", apperrors.ErrUpstreamIdentity, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", apperrors.ErrUpstreamIdentity, path, err)
	}
	return nil
}
