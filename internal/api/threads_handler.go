package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mailfold/mailfold/internal/db"
)

// ListThreads handles GET /api/v1/scopes/{scope}/threads. Threads come
// back most recently active first; archived threads are hidden unless
// ?include_archived=true.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scopeKey := chi.URLParam(r, "scope")
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	limit, offset := parsePagination(r, 50)

	threads, err := db.GetThreadsForScope(ctx, h.pool, scopeKey, includeArchived, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("scope_key", scopeKey).Msg("thread list failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{"threads": threads})
}

// GetThread handles GET /api/v1/scopes/{scope}/threads/{threadID},
// returning the thread with its messages and their attachments.
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scopeKey := chi.URLParam(r, "scope")
	threadID := chi.URLParam(r, "threadID")

	thread, err := db.GetThreadByID(ctx, h.pool, scopeKey, threadID)
	if err != nil {
		if errors.Is(err, db.ErrThreadNotFound) {
			h.Error(w, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("thread lookup failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	messages, err := db.GetMessagesForThread(ctx, h.pool, threadID)
	if err != nil {
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("thread messages lookup failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	messageIDs := make([]string, 0, len(messages))
	for _, msg := range messages {
		messageIDs = append(messageIDs, msg.ID)
	}

	attachments, err := db.GetAttachmentsForMessages(ctx, h.pool, messageIDs)
	if err != nil {
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("attachment lookup failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	for _, msg := range messages {
		for _, att := range attachments[msg.ID] {
			msg.Attachments = append(msg.Attachments, *att)
		}
		thread.Messages = append(thread.Messages, *msg)
	}

	h.JSON(w, http.StatusOK, thread)
}

// SetThreadRead handles POST .../threads/{threadID}/read with a body
// of {"read": true|false}, flipping every message in the thread.
func (h *Handler) SetThreadRead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Read bool `json:"read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scopeKey := chi.URLParam(r, "scope")
	threadID := chi.URLParam(r, "threadID")

	if err := db.SetThreadRead(r.Context(), h.pool, scopeKey, threadID, body.Read); err != nil {
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("thread read toggle failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"read": body.Read})
}

// SetThreadArchived handles POST .../threads/{threadID}/archive with a
// body of {"archived": true|false}.
func (h *Handler) SetThreadArchived(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scopeKey := chi.URLParam(r, "scope")
	threadID := chi.URLParam(r, "threadID")

	if err := db.SetThreadArchived(r.Context(), h.pool, scopeKey, threadID, body.Archived); err != nil {
		if errors.Is(err, db.ErrThreadNotFound) {
			h.Error(w, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("thread archive toggle failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"archived": body.Archived})
}

// AddThreadLabel handles PUT .../threads/{threadID}/labels/{label}.
func (h *Handler) AddThreadLabel(w http.ResponseWriter, r *http.Request) {
	scopeKey := chi.URLParam(r, "scope")
	threadID := chi.URLParam(r, "threadID")
	label := chi.URLParam(r, "label")

	if err := db.AddThreadLabel(r.Context(), h.pool, scopeKey, threadID, label); err != nil {
		if errors.Is(err, db.ErrThreadNotFound) {
			h.Error(w, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("label add failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"label": label})
}

// RemoveThreadLabel handles DELETE .../threads/{threadID}/labels/{label}.
func (h *Handler) RemoveThreadLabel(w http.ResponseWriter, r *http.Request) {
	scopeKey := chi.URLParam(r, "scope")
	threadID := chi.URLParam(r, "threadID")
	label := chi.URLParam(r, "label")

	if err := db.RemoveThreadLabel(r.Context(), h.pool, scopeKey, threadID, label); err != nil {
		if errors.Is(err, db.ErrThreadNotFound) {
			h.Error(w, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("label remove failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetMessageRead handles POST .../messages/{messageID}/read with a
// body of {"read": true|false}.
func (h *Handler) SetMessageRead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Read bool `json:"read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scopeKey := chi.URLParam(r, "scope")
	messageID := chi.URLParam(r, "messageID")

	if err := db.SetMessageRead(r.Context(), h.pool, scopeKey, messageID, body.Read); err != nil {
		if errors.Is(err, db.ErrMessageNotFound) {
			h.Error(w, http.StatusNotFound, "message not found")
			return
		}
		h.logger.Error().Err(err).Str("message_id", messageID).Msg("message read toggle failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"read": body.Read})
}
