// Package signaling implements the HTTP offer/answer exchange with the
// univox backend.
package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"univox/internal/ports"
)

// DefaultServerURL is used when no backend address is configured.
const DefaultServerURL = "http://localhost:7860"

const offerPath = "/api/offer"

// Error reports a non-2xx response from the offer endpoint.
type Error struct {
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("signaling offer rejected: HTTP %d", e.StatusCode)
}

// Client exchanges SDP descriptions with the univox backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a signaling client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Exchange POSTs the local offer and returns the backend's answer. The
// answer is consumed verbatim by the caller; no validation beyond JSON
// decoding is applied.
func (c *Client) Exchange(ctx context.Context, offer ports.Description) (ports.Description, error) {
	body, err := json.Marshal(offer)
	if err != nil {
		return ports.Description{}, fmt.Errorf("failed to encode offer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+offerPath, bytes.NewReader(body))
	if err != nil {
		return ports.Description{}, fmt.Errorf("failed to build offer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.Description{}, fmt.Errorf("offer exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.Description{}, &Error{StatusCode: resp.StatusCode}
	}

	var answer ports.Description
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return ports.Description{}, fmt.Errorf("failed to decode backend answer: %w", err)
	}
	return answer, nil
}
