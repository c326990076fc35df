package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/recallion/recallion/internal/core"
)

const enrichSystemPrompt = `You are a memory processing AI. Analyze the given memory and return a JSON object with these fields:
- summary: A concise 1-2 sentence summary
- keywords: An array of 3-7 relevant keywords
- tags: An array of 2-5 category tags (e.g., "work", "personal", "idea", "learning", "goal")
- importance: A score from 1-10 (10 = critical life info, 1 = trivial)
- ai_insight: A brief insight or connection (1 sentence)

Return ONLY valid JSON, no markdown or explanation.`

const reviewSystemPrompt = `You are a memory review AI. Analyze the user's memories and for each one, provide an updated importance score and a brief review insight. Focus on detecting outdated content, suggesting improvements, and identifying connections between memories. Return a JSON array of objects with fields: id (string), new_importance (integer 1-10), review_insight (string, 1 sentence).`

var enrichToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"keywords": {"type": "array", "items": {"type": "string"}},
		"tags": {"type": "array", "items": {"type": "string"}},
		"importance": {"type": "integer", "minimum": 1, "maximum": 10},
		"ai_insight": {"type": "string"}
	},
	"required": ["summary", "keywords", "tags", "importance", "ai_insight"],
	"additionalProperties": false
}`)

var reviewToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"reviews": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"new_importance": {"type": "integer", "minimum": 1, "maximum": 10},
					"review_insight": {"type": "string"}
				},
				"required": ["id", "new_importance", "review_insight"],
				"additionalProperties": false
			}
		}
	},
	"required": ["reviews"],
	"additionalProperties": false
}`)

// structuredResult is the tagged outcome of a schema-constrained call: the
// payload either arrived as tool-call arguments or as free-form JSON content.
// The distinction is resolved here, once, at the boundary.
type structuredResult struct {
	payload  json.RawMessage
	fromTool bool
}

// callStructured issues a tool-constrained completion and resolves which of the
// two response shapes the gateway produced.
func (c *Client) callStructured(ctx context.Context, system, user, toolName string, schema json.RawMessage) (structuredResult, error) {
	req := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: core.RoleSystem, Content: system},
			{Role: core.RoleUser, Content: user},
		},
		Tools: []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:       toolName,
				Parameters: schema,
			},
		}},
		ToolChoice: &chatToolChoice{
			Type:     "function",
			Function: chatToolChoiceFunc{Name: toolName},
		},
	}

	var resp chatResponse
	if err := c.doJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return structuredResult{}, err
	}
	if len(resp.Choices) == 0 {
		return structuredResult{}, fmt.Errorf("%w: empty choices", core.ErrMalformedResponse)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		return structuredResult{
			payload:  json.RawMessage(msg.ToolCalls[0].Function.Arguments),
			fromTool: true,
		}, nil
	}
	if msg.Content == "" {
		return structuredResult{}, fmt.Errorf("%w: neither tool call nor content", core.ErrMalformedResponse)
	}
	return structuredResult{payload: json.RawMessage(msg.Content)}, nil
}

// ExtractMemory runs the enrichment extraction over raw memory content.
func (c *Client) ExtractMemory(ctx context.Context, content string) (core.Extraction, error) {
	res, err := c.callStructured(ctx, enrichSystemPrompt, content, "process_memory", enrichToolSchema)
	if err != nil {
		return core.Extraction{}, err
	}

	var out core.Extraction
	if err := json.Unmarshal(res.payload, &out); err != nil {
		return core.Extraction{}, fmt.Errorf("%w: extraction payload: %v", core.ErrMalformedResponse, err)
	}
	if out.Summary == "" {
		return core.Extraction{}, fmt.Errorf("%w: extraction missing summary", core.ErrMalformedResponse)
	}
	return out, nil
}

// ReviewMemories runs one batched re-scoring call over a rendered digest.
func (c *Client) ReviewMemories(ctx context.Context, digest string) ([]core.ReviewItem, error) {
	res, err := c.callStructured(ctx, reviewSystemPrompt, "Review these memories:\n"+digest, "review_memories", reviewToolSchema)
	if err != nil {
		return nil, err
	}

	var out struct {
		Reviews []core.ReviewItem `json:"reviews"`
	}
	if err := json.Unmarshal(res.payload, &out); err == nil && len(out.Reviews) > 0 {
		return out.Reviews, nil
	}

	// Free-form responses sometimes emit the array without the wrapper object.
	var items []core.ReviewItem
	if err := json.Unmarshal(res.payload, &items); err != nil {
		return nil, fmt.Errorf("%w: review payload: %v", core.ErrMalformedResponse, err)
	}
	return items, nil
}
