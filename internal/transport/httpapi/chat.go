package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/internal/service/chat"
	"github.com/recallion/recallion/pkg/log"
)

type chatRequest struct {
	Messages []core.ChatMessage `json:"messages"`
}

// sseChunk mirrors the upstream delta shape so existing stream consumers work
// against this API unchanged.
type sseChunk struct {
	Choices []sseChoice `json:"choices"`
}

type sseChoice struct {
	Delta sseDelta `json:"delta"`
}

type sseDelta struct {
	Content string `json:"content"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	ctx := r.Context()
	body, err := h.chat.Stream(ctx, ownerFromContext(ctx), req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
		case errors.Is(err, core.ErrBillingRequired):
			writeError(w, http.StatusPaymentRequired, "ai credits depleted, please add credits")
		default:
			writeError(w, statusFromError(err), "failed to start chat stream")
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = body.Close()
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	transcript := chat.NewTranscript(req.Messages)
	res, err := chat.Consume(ctx, body, transcript, func(delta string) error {
		payload, merr := json.Marshal(sseChunk{Choices: []sseChoice{{Delta: sseDelta{Content: delta}}}})
		if merr != nil {
			return merr
		}
		if _, werr := fmt.Fprintf(w, "data: %s\n\n", payload); werr != nil {
			return werr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already on the wire; all that is left is to stop.
		if !chat.IsCancellation(err) {
			log.FromCtx(ctx).Error().Err(err).Msg("chat stream aborted")
		}
		return
	}

	if res.MalformedFrames > 0 {
		log.FromCtx(ctx).Warn().Int("frames", res.MalformedFrames).Msg("chat stream contained malformed frames")
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
