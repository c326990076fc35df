package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/internal/service/review"
	"github.com/recallion/recallion/pkg/log"
)

const defaultListLimit = 100

// EnrichQueue schedules background enrichment of one memory.
type EnrichQueue interface {
	Enqueue(ctx context.Context, ownerID, memoryID string) bool
}

// ChatStreamer opens a model stream for one chat turn.
type ChatStreamer interface {
	Stream(ctx context.Context, ownerID string, history []core.ChatMessage) (io.ReadCloser, error)
}

// MemoryReviewer re-scores a batch of recent memories.
type MemoryReviewer interface {
	Run(ctx context.Context, ownerID string) (review.Report, error)
}

type Handler struct {
	store    core.MemoryStore
	blobs    core.BlobStore
	queue    EnrichQueue
	chat     ChatStreamer
	reviewer MemoryReviewer
}

func NewHandler(store core.MemoryStore, blobs core.BlobStore, queue EnrichQueue, chat ChatStreamer, reviewer MemoryReviewer) *Handler {
	return &Handler{
		store:    store,
		blobs:    blobs,
		queue:    queue,
		chat:     chat,
		reviewer: reviewer,
	}
}

type createMemoryRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

func (h *Handler) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	m := core.Memory{
		OwnerID:  ownerFromContext(r.Context()),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	}
	if err := h.store.Insert(r.Context(), &m); err != nil {
		writeError(w, statusFromError(err), "failed to store memory")
		return
	}

	h.queue.Enqueue(r.Context(), m.OwnerID, m.ID)
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleListMemories(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	orderBy := core.OrderByCreatedDesc
	if r.URL.Query().Get("order") == "importance" {
		orderBy = core.OrderByImportanceDesc
	}

	memories, err := h.store.ListByOwner(r.Context(), ownerFromContext(r.Context()), orderBy, limit)
	if err != nil {
		writeError(w, statusFromError(err), "failed to list memories")
		return
	}
	if memories == nil {
		memories = []core.Memory{}
	}
	writeJSON(w, http.StatusOK, memories)
}

type patchMemoryRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handlePatchMemory(w http.ResponseWriter, r *http.Request) {
	var req patchMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	owner := ownerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	// An edited memory gets a blank slate: the derived fields described the old
	// text and would otherwise survive until re-enrichment finishes.
	var (
		empty    string
		zero     int
		noList   []string
		noVector []float32
	)
	patch := core.MemoryPatch{
		Content:    &req.Content,
		Summary:    &empty,
		Keywords:   &noList,
		Tags:       &noList,
		Importance: &zero,
		AIInsight:  &empty,
		Embedding:  &noVector,
	}
	if err := h.store.Update(r.Context(), owner, id, patch); err != nil {
		writeError(w, statusFromError(err), "failed to update memory")
		return
	}

	h.queue.Enqueue(r.Context(), owner, id)

	m, err := h.store.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, statusFromError(err), "failed to load updated memory")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	m, err := h.store.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, statusFromError(err), "memory not found")
		return
	}

	if err := h.store.Delete(r.Context(), owner, id); err != nil {
		writeError(w, statusFromError(err), "failed to delete memory")
		return
	}

	// Blob release is best-effort; the record is already gone.
	if m.ImageURL != "" {
		if err := h.blobs.Remove(r.Context(), m.ImageURL); err != nil {
			log.FromCtx(r.Context()).Warn().Err(err).Str("memory_id", id).Msg("failed to remove memory blob")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEnrichMemory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := h.store.Get(r.Context(), owner, id); err != nil {
		writeError(w, statusFromError(err), "memory not found")
		return
	}

	queued := h.queue.Enqueue(r.Context(), owner, id)
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	report, err := h.reviewer.Run(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, statusFromError(err), "review failed")
		return
	}

	failed := make(map[string]string, len(report.Failed))
	for id, ferr := range report.Failed {
		failed[id] = ferr.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reviewed": report.Reviewed,
		"failed":   failed,
	})
}
