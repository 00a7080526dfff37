package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionHandler_Create(t *testing.T) {
	mock := storage.NewMockStorage()
	handler := NewSessionHandler(testLogger(), "Adventurer", mock)

	t.Run("with player name", func(t *testing.T) {
		body := bytes.NewBufferString(`{"player_name": "Mira"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", body)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp SessionResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		assert.NotEqual(t, uuid.Nil, resp.ID)
		assert.Equal(t, "Mira", resp.Snapshot.Player.Name)
		assert.Equal(t, 1, resp.Snapshot.Player.Level)

		// The world must actually be persisted.
		if _, err := mock.LoadWorld(req.Context(), resp.ID); err != nil {
			t.Errorf("Expected world in storage, got %v", err)
		}
	})

	t.Run("empty body uses default name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp SessionResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		assert.Equal(t, "Adventurer", resp.Snapshot.Player.Name)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		body := bytes.NewBufferString(`{"player_name": `)
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", body)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessionHandler_Read(t *testing.T) {
	mock := storage.NewMockStorage()
	handler := NewSessionHandler(testLogger(), "Adventurer", mock)

	sess := state.NewSession("Mira", testLogger())
	if err := mock.SaveWorld(t.Context(), sess.ID, sess.World()); err != nil {
		t.Fatal(err)
	}

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID.String(), nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp SessionResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		assert.Equal(t, sess.ID, resp.ID)
		assert.Equal(t, "Mira", resp.Snapshot.Player.Name)
	})

	t.Run("snapshot subresource", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID.String()+"/snapshot", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var snap state.Snapshot
		if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
			t.Fatalf("Failed to decode snapshot: %v", err)
		}
		assert.Equal(t, "Mira", snap.Player.Name)
	})

	t.Run("unknown subresource", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID.String()+"/history", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode error: %v", err)
		}
		assert.Equal(t, "Session not found", resp.Error)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessionHandler_Delete(t *testing.T) {
	mock := storage.NewMockStorage()
	handler := NewSessionHandler(testLogger(), "Adventurer", mock)

	sess := state.NewSession("Mira", testLogger())
	if err := mock.SaveWorld(t.Context(), sess.ID, sess.World()); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sess.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Second delete reports not found.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(testLogger(), "Adventurer", storage.NewMockStorage())

	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	// POST to a specific session is not supported either.
	req = httptest.NewRequest(http.MethodPost, "/v1/sessions/"+uuid.NewString(), nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
