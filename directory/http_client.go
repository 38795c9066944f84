package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

// HTTPClient talks to the backend data service's internal identity API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a directory client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) identityURL(provider providers.Name, subject, path string) string {
	return fmt.Sprintf("%s/internal/identities/%s/%s%s",
		c.baseURL, url.PathEscape(string(provider)), url.PathEscape(subject), path)
}

func (c *HTTPClient) Lookup(ctx context.Context, provider providers.Name, subject, email string) (Profile, error) {
	u := c.identityURL(provider, subject, "") + "?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("directory: build request: %w", err)
	}

	var profile Profile
	if err := c.do(req, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *HTTPClient) CompleteOnboarding(ctx context.Context, provider providers.Name, subject, email string, input OnboardingInput) (Profile, error) {
	body, err := json.Marshal(struct {
		Email string `json:"email"`
		OnboardingInput
	}{Email: email, OnboardingInput: input})
	if err != nil {
		return Profile{}, fmt.Errorf("directory: encode onboarding: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.identityURL(provider, subject, "/onboarding"), bytes.NewReader(body))
	if err != nil {
		return Profile{}, fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var profile Profile
	if err := c.do(req, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *HTTPClient) AssignRole(ctx context.Context, provider providers.Name, subject, email string, role roles.Role) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "role": string(role)})
	if err != nil {
		return "", fmt.Errorf("directory: encode role assignment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.identityURL(provider, subject, "/role"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var detail struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, detail.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

var _ Directory = (*HTTPClient)(nil)
