package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/internal/api"
	"github.com/mailfold/mailfold/internal/blob"
	"github.com/mailfold/mailfold/internal/config"
	"github.com/mailfold/mailfold/internal/db"
	"github.com/mailfold/mailfold/internal/models"
	"github.com/mailfold/mailfold/internal/testutil"
)

// newDBRouter wires the full stack against a real database.
func newDBRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	pool := testutil.NewTestDB(t)
	t.Cleanup(pool.Close)

	domain := &models.Domain{OwnerID: "owner-1", Name: "x.com", IsVerified: true}
	require.NoError(t, db.CreateDomain(context.Background(), pool, domain))

	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{WebhookToken: "hook-secret", APIToken: "api-secret"}
	h := api.NewHandler(pool, db.NewStore(pool), nil, blobs, nil, cfg, zerolog.Nop())
	return api.NewRouter(cfg, h, zerolog.Nop()), "domain:" + domain.ID
}

func deliver(t *testing.T, router http.Handler, payload string) map[string]interface{} {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/hooks/inbound", strings.NewReader(payload))
	r.Header.Set("Authorization", "Bearer hook-secret")
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func apiGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Authorization", "Bearer api-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestThreadListAndDetail(t *testing.T) {
	router, scopeKey := newDBRouter(t)

	deliver(t, router, `{"message_id": "<root@provider>", "recipient": "a@x.com", "to": ["a@x.com"], "from": "s@elsewhere.net", "subject": "Hello", "text": "hi", "timestamp": "2026-03-01T10:00:00Z"}`)
	deliver(t, router, `{"message_id": "<reply@provider>", "in_reply_to": "<root@provider>", "recipient": "a@x.com", "to": ["a@x.com"], "from": "t@elsewhere.net", "subject": "Re: Hello", "text": "hi back", "timestamp": "2026-03-01T11:00:00Z"}`)

	w := apiGet(t, router, "/api/v1/scopes/"+scopeKey+"/threads")
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Threads []models.Thread `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Threads, 1)

	thread := listing.Threads[0]
	assert.Equal(t, 2, thread.MessageCount)
	assert.True(t, thread.IsUnread)
	assert.ElementsMatch(t, []string{"s@elsewhere.net", "t@elsewhere.net", "a@x.com"}, thread.Participants)

	w = apiGet(t, router, "/api/v1/scopes/"+scopeKey+"/threads/"+thread.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var detail models.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "hi", detail.Messages[0].BodyText)
	assert.Equal(t, "hi back", detail.Messages[1].BodyText)
}

func TestThreadReadToggle(t *testing.T) {
	router, scopeKey := newDBRouter(t)

	result := deliver(t, router, `{"message_id": "<root@provider>", "recipient": "a@x.com", "to": ["a@x.com"], "from": "s@elsewhere.net", "subject": "Hello", "text": "hi"}`)
	threadID := result["thread_id"].(string)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/scopes/"+scopeKey+"/threads/"+threadID+"/read", strings.NewReader(`{"read": true}`))
	r.Header.Set("Authorization", "Bearer api-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	w = apiGet(t, router, "/api/v1/scopes/"+scopeKey+"/threads/"+threadID)
	require.Equal(t, http.StatusOK, w.Code)

	var detail models.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.False(t, detail.IsUnread)
}

func TestThreadArchiveAndLabels(t *testing.T) {
	router, scopeKey := newDBRouter(t)

	result := deliver(t, router, `{"message_id": "<root@provider>", "recipient": "a@x.com", "to": ["a@x.com"], "from": "s@elsewhere.net", "subject": "Hello", "text": "hi"}`)
	threadID := result["thread_id"].(string)

	r := httptest.NewRequest(http.MethodPut, "/api/v1/scopes/"+scopeKey+"/threads/"+threadID+"/labels/junk", nil)
	r.Header.Set("Authorization", "Bearer api-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/scopes/"+scopeKey+"/threads/"+threadID+"/archive", strings.NewReader(`{"archived": true}`))
	r.Header.Set("Authorization", "Bearer api-secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// Archived threads disappear from the default listing.
	w = apiGet(t, router, "/api/v1/scopes/"+scopeKey+"/threads")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Threads []models.Thread `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Empty(t, listing.Threads)

	w = apiGet(t, router, "/api/v1/scopes/"+scopeKey+"/threads?include_archived=true")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Threads, 1)
	assert.Equal(t, []string{"junk"}, listing.Threads[0].Labels)
	assert.True(t, listing.Threads[0].IsArchived)
}

func TestThreadNotFound(t *testing.T) {
	router, scopeKey := newDBRouter(t)

	w := apiGet(t, router, "/api/v1/scopes/"+scopeKey+"/threads/00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
