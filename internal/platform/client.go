// Package platform is a thin client for the deployment platform's custom
// domain API. Each call authenticates with the credential the buyer stored
// on their project connection, not an operator-wide secret.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the deployment platform API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a platform client. The timeout bounds every call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type domainRegistration struct {
	Name string `json:"name"`
}

// RegisterDomain registers fullDomain (label.baseDomain) as a custom domain
// on the named project. Any non-2xx response or transport error is a
// failure for this call only.
func (c *Client) RegisterDomain(ctx context.Context, projectID, fullDomain, credential string) ([]byte, error) {
	body, err := json.Marshal(domainRegistration{Name: fullDomain})
	if err != nil {
		return nil, fmt.Errorf("failed to encode domain registration: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/domains", c.baseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build platform request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("platform returned %d: %s", resp.StatusCode, payload)
	}
	return payload, nil
}
