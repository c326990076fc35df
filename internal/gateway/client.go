package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/pkg/retry"
)

// maxResponseSize caps non-streaming response bodies (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// Client talks to an OpenAI-compatible model gateway. It implements
// core.ModelGateway.
type Client struct {
	client         *http.Client
	streamClient   *http.Client
	retrier        *retry.Retrier
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string
}

func NewClient(cfg *config.GatewayConfig) *Client {
	retryCfg := retry.NewDefaultConfig()
	// Only transport-level failures are worth another attempt; status errors
	// (429, 402, 5xx bodies) carry meaning the pipelines must see.
	retryCfg.RetryIf = func(err error) bool {
		return errors.Is(err, core.ErrTransport)
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		// No client timeout on the streaming path: a completion may legitimately
		// take longer than any fixed budget. Cancellation comes from ctx.
		streamClient:   &http.Client{},
		retrier:        retry.NewRetrier(retryCfg),
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
	}
}

func (c *Client) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", core.AppUserAgent)

	return req, nil
}

// doJSON posts payload to path and decodes the response into out. Transport
// failures are retried with backoff; gateway status errors are not.
func (c *Client) doJSON(ctx context.Context, path string, payload any, out any) error {
	return c.retrier.Do(ctx, func() error {
		req, err := c.newRequest(ctx, path, payload)
		if err != nil {
			return err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return mapConnectionError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return mapConnectionError(err)
		}

		if err := mapStatusError(resp.StatusCode, body); err != nil {
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
		}
		return nil
	})
}
