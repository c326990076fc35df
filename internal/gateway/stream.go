package gateway

import (
	"context"
	"io"
	"sync"

	"github.com/recallion/recallion/internal/core"
)

// ChatStream opens a streaming completion over messages. The returned body
// carries the raw line-framed protocol; the caller must close it on every exit
// path. Context cancellation closes the body to unblock pending reads.
func (c *Client) ChatStream(ctx context.Context, messages []core.ChatMessage) (io.ReadCloser, error) {
	wire := make([]chatMessage, len(messages))
	for i, m := range messages {
		wire[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	req, err := c.newRequest(ctx, "/chat/completions", chatRequest{
		Model:    c.chatModel,
		Messages: wire,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, mapConnectionError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, mapStatusError(resp.StatusCode, body)
	}

	return newCancelBody(ctx, resp.Body), nil
}

// cancelBody closes the wrapped body when ctx is cancelled so that a blocked
// Read returns instead of hanging past the caller's deadline.
type cancelBody struct {
	rc   io.ReadCloser
	done chan struct{}
	once sync.Once
}

func newCancelBody(ctx context.Context, rc io.ReadCloser) *cancelBody {
	b := &cancelBody{rc: rc, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = b.rc.Close()
		case <-b.done:
		}
	}()
	return b
}

func (b *cancelBody) Read(p []byte) (int, error) {
	return b.rc.Read(p)
}

func (b *cancelBody) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.rc.Close()
	})
	return err
}
