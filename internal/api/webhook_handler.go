package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/metrics"
	"github.com/mailfold/mailfold/internal/models"
	"github.com/mailfold/mailfold/internal/provider"
)

// maxInboundBody caps webhook payload size, including encoded attachments.
const maxInboundBody = 50 << 20

// Inbound handles POST /hooks/inbound: one provider delivery attempt.
// The same event may arrive any number of times; every attempt returns
// the converged message identity, so providers can retry blindly.
func (h *Handler) Inbound(w http.ResponseWriter, r *http.Request) {
	// The deadline keeps one stuck store call from outliving the
	// provider's own delivery timeout; the provider will redeliver.
	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBody+1))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(body) > maxInboundBody {
		h.Error(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	adapter := h.adapterFor(r.Header.Get("Content-Type"))
	msg, err := adapter.Parse(body)
	if err != nil {
		h.rejectInbound(w, adapter.Name(), err)
		return
	}

	scope, err := h.scopes.Resolve(ctx, msg.RecipientAddress)
	if err != nil {
		h.rejectInbound(w, adapter.Name(), err)
		return
	}

	result, err := h.coordinator.Ingest(ctx, scope, msg)
	if err != nil {
		h.rejectInbound(w, adapter.Name(), err)
		return
	}

	metrics.IngestResults.WithLabelValues(string(result.Outcome)).Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	// Attachments ride along on the delivery that stored the message
	// content. Failures are already counted and logged inside the
	// associator; they never fail the delivery.
	if result.Outcome != ingest.OutcomeDuplicate && len(msg.Attachments) > 0 {
		h.associator.Associate(ctx, result.MessageID, msg.Attachments)
	}

	if result.Outcome == ingest.OutcomeCreated {
		h.notifyNewMessage(scope, result)
	}

	status := http.StatusOK
	if result.Outcome == ingest.OutcomeCreated {
		status = http.StatusCreated
	}
	h.JSON(w, status, result)
}

// adapterFor picks the payload adapter for a Content-Type header.
// Raw RFC 5322 posts use message/rfc822; everything else is treated
// as the JSON webhook format.
func (h *Handler) adapterFor(contentType string) provider.Adapter {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if adapter, ok := h.adapters[mediaType]; ok {
			return adapter
		}
	}
	return h.adapters["application/json"]
}

// rejectInbound maps engine errors onto HTTP statuses. Terminal
// rejections get 4xx so providers stop retrying; storage trouble gets
// 503 so they retry later.
func (h *Handler) rejectInbound(w http.ResponseWriter, adapterName string, err error) {
	var status int
	var reason string

	switch {
	case errors.Is(err, ingest.ErrMalformedPayload):
		status, reason = http.StatusBadRequest, "malformed"
	case errors.Is(err, ingest.ErrScopeNotFound):
		status, reason = http.StatusNotFound, "scope_not_found"
	case errors.Is(err, ingest.ErrScopeDisabled):
		status, reason = http.StatusGone, "scope_disabled"
	case ingest.IsRetryable(err):
		status, reason = http.StatusServiceUnavailable, "storage"
	default:
		status, reason = http.StatusInternalServerError, "internal"
	}

	metrics.IngestRejections.WithLabelValues(reason).Inc()
	h.logger.Warn().Err(err).Str("adapter", adapterName).Str("reason", reason).Msg("inbound delivery rejected")
	h.Error(w, status, reason)
}

// notifyNewMessage pushes a new-message event to the scope owner's
// active WebSocket connections. Best effort.
func (h *Handler) notifyNewMessage(scope *models.Scope, result *ingest.Result) {
	if h.hub == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"type":       "message.created",
		"message_id": result.MessageID,
		"thread_id":  result.ThreadID,
		"scope_key":  scope.Key(),
	})
	if err != nil {
		return
	}

	h.hub.Send(scope.OwnerID(), payload)
}
