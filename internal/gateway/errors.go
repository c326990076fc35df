package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/recallion/recallion/internal/core"
)

// mapStatusError maps an HTTP status and response body to a core sentinel.
// Returns nil for 2xx. 429 and 402 get distinct sentinels so callers can show
// rate-limit and billing notices instead of a generic failure.
func mapStatusError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := string(body)
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", core.ErrRateLimited, msg)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", core.ErrBillingRequired, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", core.ErrUpstream, statusCode, msg)
	}
}

// mapConnectionError wraps network-level failures as core.ErrTransport.
// Context errors pass through unchanged so cancellation stays recognizable.
func mapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrTransport, err)
}
