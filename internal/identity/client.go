// Package identity integrates the external identity provider: credential
// verification plus the user-profile API used to fill in local records
// the first time an external identity is seen.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codepair/api/internal/config"
)

// Profile is the provider's view of a user.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	ImageURL  string `json:"image_url"`
}

// DisplayName joins the name parts, falling back to "New User" when the
// provider has neither.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return "New User"
	}
	return name
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.IdentityConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// GetUser fetches a user's profile from the provider.
func (c *Client) GetUser(ctx context.Context, externalID string) (Profile, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch user %s: %w", externalID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Profile{}, fmt.Errorf("fetch user %s: status %d: %s", externalID, resp.StatusCode, detail)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}
