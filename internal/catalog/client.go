package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrBadStatus is returned when a feed answers with a non-200 status.
var ErrBadStatus = errors.New("unexpected http status")

// Client fetches catalog snapshots.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a Client. timeout bounds each whole feed request.
func NewClient(httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Fetch returns the ordered version identifiers published at feedURL.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", feedURL, resp.Status, ErrBadStatus)
	}

	var versions []string
	if err = json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("decode %s: %w", feedURL, err)
	}

	return versions, nil
}
