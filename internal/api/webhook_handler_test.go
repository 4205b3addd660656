package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/internal/api"
	"github.com/mailfold/mailfold/internal/blob"
	"github.com/mailfold/mailfold/internal/config"
	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
	"github.com/mailfold/mailfold/internal/testutil"
)

func newTestHandler(t *testing.T, store ingest.Store) *api.Handler {
	t.Helper()

	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{APIToken: "api-secret", WebhookToken: "hook-secret"}
	return api.NewHandler(nil, store, nil, blobs, nil, cfg, zerolog.Nop())
}

func postInbound(h *api.Handler, contentType string, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/hooks/inbound", bytes.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Inbound(w, r)
	return w
}

func jsonPayload(t *testing.T, overrides map[string]interface{}) []byte {
	t.Helper()

	payload := map[string]interface{}{
		"message_id": "<abc@provider>",
		"from":       "sender@elsewhere.net",
		"to":         []string{"a@x.com"},
		"subject":    "Hello",
		"text":       "hi",
		"recipient":  "a@x.com",
	}
	for k, v := range overrides {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestInboundCreatesMessage(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddDomain("x.com", true)
	h := newTestHandler(t, store)

	w := postInbound(h, "application/json", jsonPayload(t, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var result ingest.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, ingest.OutcomeCreated, result.Outcome)
	assert.NotEmpty(t, result.MessageID)
	assert.NotEmpty(t, result.ThreadID)
	assert.Equal(t, 1, store.MessageCount())
}

func TestInboundDuplicateDelivery(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddDomain("x.com", true)
	h := newTestHandler(t, store)

	first := postInbound(h, "application/json", jsonPayload(t, nil))
	require.Equal(t, http.StatusCreated, first.Code)

	second := postInbound(h, "application/json", jsonPayload(t, nil))
	require.Equal(t, http.StatusOK, second.Code)

	var result ingest.Result
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &result))
	assert.Equal(t, ingest.OutcomeDuplicate, result.Outcome)
	assert.Equal(t, 1, store.MessageCount())
}

func TestInboundRawMIME(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddDomain("x.com", true)
	h := newTestHandler(t, store)

	message := "Message-Id: <raw@provider>\r\n" +
		"From: sender@elsewhere.net\r\n" +
		"To: a@x.com\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hi there\r\n"

	w := postInbound(h, "message/rfc822", []byte(message))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, store.MessageCount())
}

func TestInboundAttachmentsPersisted(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddDomain("x.com", true)
	h := newTestHandler(t, store)

	body := jsonPayload(t, map[string]interface{}{
		"attachments": []map[string]string{
			{"filename": "note.txt", "content_type": "text/plain", "content": "aGVsbG8="},
		},
	})

	w := postInbound(h, "application/json", body)
	require.Equal(t, http.StatusCreated, w.Code)

	attachments := store.Attachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "note.txt", attachments[0].Filename)
	assert.NotEmpty(t, attachments[0].StorageRef)
}

func TestInboundRejections(t *testing.T) {
	store := testutil.NewMemStore()
	domain := store.AddDomain("x.com", true)
	store.AddAlias(domain.ID, "off", false)
	h := newTestHandler(t, store)

	tests := []struct {
		name       string
		body       []byte
		wantStatus int
	}{
		{"invalid json", []byte(`{not json`), http.StatusBadRequest},
		{"missing recipient", []byte(`{"message_id": "<abc@provider>"}`), http.StatusBadRequest},
		{"unknown domain", jsonPayload(t, map[string]interface{}{"recipient": "a@nowhere.test", "to": []string{"a@nowhere.test"}}), http.StatusNotFound},
		{"disabled alias", jsonPayload(t, map[string]interface{}{"recipient": "off@x.com", "to": []string{"off@x.com"}}), http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postInbound(h, "application/json", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	assert.Equal(t, 0, store.MessageCount())
}

// brokenStore fails every message lookup.
type brokenStore struct {
	ingest.Store
}

func (s *brokenStore) GetMessageByNormalizedID(context.Context, string, string) (*models.Message, error) {
	return nil, errors.New("connection refused")
}

func TestInboundStorageFailure(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddDomain("x.com", true)
	h := newTestHandler(t, &brokenStore{Store: store})

	w := postInbound(h, "application/json", jsonPayload(t, nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
