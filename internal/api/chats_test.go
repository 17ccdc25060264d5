package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	// Create with an explicit title.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chats", body(`{"title":"Test"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Test", created.Title)
	require.Positive(t, created.ID)

	// Fetch it back: empty messages array, not null.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/chats/%d", created.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		ID       int64             `json:"id"`
		Title    string            `json:"title"`
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, created.ID, detail.ID)
	assert.NotNil(t, detail.Messages)
	assert.Empty(t, detail.Messages)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)

	// Delete, then the chat is gone.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/chats/%d", created.ID), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/chats/%d", created.ID), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Chat not found"`)

	// Deleting again stays idempotent.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/chats/%d", created.ID), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateChatDefaultTitle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chats", body(`{}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"New Chat"`)
}

func TestListChats(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, title := range []string{"first", "second"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chats", body(fmt.Sprintf(`{"title":%q}`, title))))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var chats []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chats))
	assert.Len(t, chats, 2)
}

func TestRenameChat(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chats", body(`{"title":"before"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, fmt.Sprintf("/chats/%d", created.ID), body(`{"title":"after"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"after"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/chats/9999", body(`{"title":"nope"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatInvalidID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthProbes(t *testing.T) {
	srv, ms := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ms.pingErr = fmt.Errorf("connection refused")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
