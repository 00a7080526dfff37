package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateSessionRequest defines the request body for creating a new session.
type CreateSessionRequest struct {
	PlayerName string `json:"player_name,omitempty"`
}

// SessionResponse is returned for create and read operations.
type SessionResponse struct {
	ID       uuid.UUID      `json:"id"`
	Snapshot state.Snapshot `json:"snapshot"`
}

type SessionHandler struct {
	storage    storage.Storage
	logger     *slog.Logger
	playerName string
}

func NewSessionHandler(logger *slog.Logger, playerName string, storage storage.Storage) *SessionHandler {
	return &SessionHandler{
		logger:     logger,
		playerName: playerName,
		storage:    storage,
	}
}

// ServeHTTP handles HTTP requests for session operations.
// Routes:
// POST /v1/sessions                  - Create new session
// GET /v1/sessions/{id}              - Read session by ID
// GET /v1/sessions/{id}/snapshot     - Read the projected snapshot only
// DELETE /v1/sessions/{id}           - Delete session by ID
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Parse the path to extract ID and optional subresource
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	var sessionID uuid.UUID
	var subresource string
	var err error

	if path != "" {
		parts := strings.SplitN(path, "/", 2)
		sessionID, err = uuid.Parse(parts[0])
		if err != nil {
			h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
			h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		if len(parts) == 2 {
			subresource = parts[1]
		}
	}

	if subresource != "" && subresource != "snapshot" {
		h.writeError(w, http.StatusNotFound, "Unknown session subresource: "+subresource)
		return
	}

	switch r.Method {
	case http.MethodPost:
		if sessionID != uuid.Nil {
			h.writeError(w, http.StatusMethodNotAllowed, "POST is only supported on the collection")
			return
		}
		h.handleCreate(w, r)

	case http.MethodGet:
		if sessionID == uuid.Nil {
			h.logger.Warn("GET request without session ID")
			h.writeError(w, http.StatusBadRequest, "Session ID is required for GET requests")
			return
		}
		h.handleRead(w, r, sessionID, subresource == "snapshot")

	case http.MethodDelete:
		if sessionID == uuid.Nil {
			h.logger.Warn("DELETE request without session ID")
			h.writeError(w, http.StatusBadRequest, "Session ID is required for DELETE requests")
			return
		}
		if subresource != "" {
			h.writeError(w, http.StatusMethodNotAllowed, "DELETE is not supported on subresources")
			return
		}
		h.handleDelete(w, r, sessionID)

	default:
		h.logger.Warn("Method not allowed for session endpoint", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET, DELETE")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new session")

	// Body is optional; an empty body creates a session with the
	// configured default player name.
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	playerName := strings.TrimSpace(req.PlayerName)
	if playerName == "" {
		playerName = h.playerName
	}

	sess := state.NewSession(playerName, h.logger)
	if err := h.storage.SaveWorld(r.Context(), sess.ID, sess.World()); err != nil {
		h.logger.Error("Failed to save new session", "error", err, "id", sess.ID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Debug("Session created successfully", "id", sess.ID.String(), "player", playerName)
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(SessionResponse{
		ID:       sess.ID,
		Snapshot: sess.Snapshot(),
	}); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, snapshotOnly bool) {
	world, err := h.storage.LoadWorld(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.logger.Warn("Session not found", "id", sessionID.String())
			h.writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to load session", "error", err, "id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	sess := state.Restore(sessionID, world, h.logger)
	w.WriteHeader(http.StatusOK)

	if snapshotOnly {
		if err := json.NewEncoder(w).Encode(sess.Snapshot()); err != nil {
			h.logger.Error("Failed to encode snapshot response", "error", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(SessionResponse{
		ID:       sessionID,
		Snapshot: sess.Snapshot(),
	}); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.storage.DeleteWorld(r.Context(), sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to delete session", "error", err, "id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Debug("Session deleted successfully", "id", sessionID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
