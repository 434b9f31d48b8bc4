package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// RequestEditorFn adjusts an outgoing request before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

func correlationIDEditor(ctx context.Context, req *http.Request) error {
	if correlationID := log.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set("Correlation-ID", correlationID)
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}
