// Package rtc holds the clients for the two remote real-time backends:
// the video-call service and the chat-messaging service. Both speak REST
// authenticated with a server-signed JWT and share one API key pair.
package rtc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const requestTimeout = 10 * time.Second

type client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

func newClient(baseURL, apiKey, apiSecret string) (*client, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("rtc: api key and secret are required")
	}
	return &client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// serverToken signs a short-lived backend token; both services accept
// the same claim shape.
func (c *client) serverToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":    c.apiKey,
		"server": true,
		"iat":    now.Unix(),
		"exp":    now.Add(5 * time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(c.apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign server token: %w", err)
	}
	return signed, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	token, err := c.serverToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// User is the account shape shared by both backends. An empty Image is
// omitted from the payload entirely; both backends reject empty-string
// image values.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}
