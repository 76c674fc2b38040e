// Package registrar is a thin client for the DNS registrar's zone API. It
// issues overwrite-style CNAME upserts and nothing else; retries are the
// caller's responsibility.
package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTTL = 300

// Client talks to the registrar API with the operator's zone token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a registrar client. The timeout bounds every call.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
	}
}

type cnameRecord struct {
	Name      string `json:"name"`
	TTL       int    `json:"ttl"`
	Target    string `json:"target"`
	Overwrite bool   `json:"overwrite"`
}

// UpsertCname writes (or overwrites) the CNAME record label -> target in
// the given zone. Any non-2xx response or transport error is a failure;
// local state is never touched here.
func (c *Client) UpsertCname(ctx context.Context, zone, label, target string) ([]byte, error) {
	record := cnameRecord{
		Name:      label,
		TTL:       defaultTTL,
		Target:    target,
		Overwrite: true,
	}
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cname record: %w", err)
	}

	url := fmt.Sprintf("%s/zones/%s", c.baseURL, zone)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build registrar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registrar request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("registrar returned %d: %s", resp.StatusCode, payload)
	}
	return payload, nil
}
