package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type InventoryError struct {
	StatusCode int
	Body       string
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Body)
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *InventoryError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 &&
		e.StatusCode != http.StatusRequestTimeout &&
		e.StatusCode != http.StatusTooManyRequests
}

type InventoryClient struct {
	baseURL *url.URL
	client  *http.Client
	editors []RequestEditorFn
}

func NewInventoryClient(baseURL string, timeout time.Duration, editors ...RequestEditorFn) (InventoryClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return InventoryClient{}, fmt.Errorf("parsing inventory service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return InventoryClient{}, fmt.Errorf("inventory service url %q must be absolute", baseURL)
	}

	return InventoryClient{
		baseURL: u,
		client:  newHTTPClient(timeout),
		editors: append([]RequestEditorFn{correlationIDEditor}, editors...),
	}, nil
}

// UpdateInventory reserves ticketCount tickets of an event.
func (c InventoryClient) UpdateInventory(ctx context.Context, idempotencyKey string, eventID int64, ticketCount int) error {
	endpoint := c.baseURL.JoinPath("api", "v1", "inventory", "event",
		fmt.Sprintf("%d", eventID), "capacity", fmt.Sprintf("%d", ticketCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("creating inventory request: %w", err)
	}
	req.Header.Set("Idempotency-Key", idempotencyKey)

	for _, edit := range c.editors {
		if err := edit(ctx, req); err != nil {
			return fmt.Errorf("editing inventory request: %w", err)
		}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("put inventory request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))

	return &InventoryError{
		StatusCode: res.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
