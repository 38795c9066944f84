package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/planfest/planfest-auth/pkce"
)

var (
	// ErrMissingCredentials means the server is misconfigured for this
	// provider. Fatal, surfaced as an opaque 500.
	ErrMissingCredentials = errors.New("providers: client id or secret not configured")

	// ErrNoIDToken means the provider returned only an access token. Only the
	// ID token is trusted for identity, so the flow cannot continue.
	ErrNoIDToken = errors.New("providers: no id_token in token response")

	// ErrProviderUnreachable wraps transport failures reaching the provider.
	// The caller may restart the flow; the server never retries mid-request
	// because authorization codes are single-use.
	ErrProviderUnreachable = errors.New("providers: provider unreachable")
)

// ExchangeError carries the provider's rejection of a code exchange: its HTTP
// status plus the OAuth2 error/error_description body. Not retried; the
// authorization code is spent either way.
type ExchangeError struct {
	Provider    Name
	StatusCode  int
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("providers: %s rejected exchange (%d): %s %s",
		e.Provider, e.StatusCode, e.Code, e.Description)
}

// Credentials are the confidential client settings for one provider. The
// client secret never leaves the server boundary.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client performs authorization redirects and token exchanges for one
// provider. Safe for concurrent use; it holds no per-login state.
type Client struct {
	name     Name
	settings Settings
	conf     *oauth2.Config
}

// New builds a provider client, failing fast on missing credentials.
func New(name Name, creds Credentials) (*Client, error) {
	settings, err := SettingsFor(name)
	if err != nil {
		return nil, err
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, name)
	}
	return &Client{
		name:     name,
		settings: settings,
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       settings.Scopes,
			Endpoint:     settings.Endpoint,
		},
	}, nil
}

// Name returns the provider this client talks to.
func (c *Client) Name() Name { return c.name }

// Settings returns the provider's static settings record.
func (c *Client) Settings() Settings { return c.settings }

// ClientID returns the configured OAuth2 client id, which doubles as the
// expected ID token audience.
func (c *Client) ClientID() string { return c.conf.ClientID }

// AuthCodeURL builds the provider authorization URL for one login attempt.
// Pure given its inputs: response_type=code, the S256 challenge, the CSRF
// state, provider scopes, and any provider-specific extras.
func (c *Client) AuthCodeURL(p pkce.Params) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", p.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	for k, v := range c.settings.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return c.conf.AuthCodeURL(p.State, opts...)
}

// Exchange redeems an authorization code plus PKCE verifier for the raw ID
// token. The exchange is not retried: codes are single-use, so a failure
// means restarting the flow from a fresh authorization redirect.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})

	token, err := c.conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return "", &ExchangeError{
				Provider:    c.name,
				StatusCode:  status,
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
			}
		}
		return "", fmt.Errorf("%w: %s: %v", ErrProviderUnreachable, c.name, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("%w: %s", ErrNoIDToken, c.name)
	}
	return rawIDToken, nil
}

// Registry holds one client per configured provider.
type Registry map[Name]*Client

// NewRegistry builds clients for every provider with credentials present.
// At least one provider must be configured.
func NewRegistry(creds map[Name]Credentials) (Registry, error) {
	reg := make(Registry, len(creds))
	for name, c := range creds {
		client, err := New(name, c)
		if err != nil {
			return nil, err
		}
		reg[name] = client
	}
	if len(reg) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrMissingCredentials)
	}
	return reg, nil
}

// Get returns the client for a provider, or ErrUnknownProvider if the
// provider is unsupported or not configured.
func (r Registry) Get(name Name) (*Client, error) {
	client, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return client, nil
}
