package gateway

import (
	"context"
	"fmt"

	"github.com/recallion/recallion/internal/core"
)

// Embed returns the embedding vector for input.
func (c *Client) Embed(ctx context.Context, input string) ([]float32, error) {
	req := embeddingsRequest{
		Model: c.embeddingModel,
		Input: input,
	}

	var resp embeddingsResponse
	if err := c.doJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", core.ErrMalformedResponse)
	}
	return resp.Data[0].Embedding, nil
}
