package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/narrative-engine/internal/services"
	"github.com/jwebster45206/narrative-engine/internal/services/events"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
	"github.com/jwebster45206/narrative-engine/pkg/prompts"
	"github.com/jwebster45206/narrative-engine/pkg/state"
	"github.com/jwebster45206/narrative-engine/pkg/turn"
)

// turnTimeout bounds one LLM round trip plus state application.
const turnTimeout = 120 * time.Second

// TurnHandler runs one narrative turn: load the session world, build
// the prompt, call the LLM, apply the proposed events, persist the
// result.
type TurnHandler struct {
	llmService  services.LLMService
	storage     storage.Storage
	broadcaster *events.Broadcaster
	processor   *turn.Processor
	world       *prompts.World
	logger      *slog.Logger
}

func NewTurnHandler(llmService services.LLMService, storage storage.Storage, broadcaster *events.Broadcaster, world *prompts.World, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		llmService:  llmService,
		storage:     storage,
		broadcaster: broadcaster,
		processor:   turn.NewProcessor(logger),
		world:       world,
		logger:      logger,
	}
}

// ServeHTTP handles POST /v1/turn.
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for turn endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var request chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body. Expected JSON with 'session_id' and 'message' fields.")
		return
	}
	if err := request.Validate(); err != nil {
		h.logger.Warn("Invalid turn request", "error", err)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()

	world, err := h.storage.LoadWorld(ctx, request.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.logger.Warn("Session not found for turn", "id", request.SessionID.String())
			h.writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to load session for turn", "error", err, "id", request.SessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	sess := state.Restore(request.SessionID, world, h.logger)

	h.publishStarted(ctx, request)

	snapshot := sess.Snapshot()
	messages, err := prompts.New().
		WithWorld(h.world).
		WithSnapshot(&snapshot).
		WithHistory(sess.History()).
		WithUserMessage(request.Message).
		Build()
	if err != nil {
		h.logger.Error("Failed to build prompt", "error", err, "id", request.SessionID.String())
		h.publishFailed(request, "prompt build failed")
		h.writeError(w, http.StatusInternalServerError, "Failed to build prompt")
		return
	}

	llmResponse, err := h.llmService.GenerateResponse(ctx, messages)
	if err != nil {
		h.logger.Error("Error generating narrator response", "error", err, "id", request.SessionID.String())
		h.publishFailed(request, "llm call failed")
		h.writeError(w, http.StatusInternalServerError, "Failed to generate response. Please try again.")
		return
	}

	result := h.processor.ProcessTurn(sess, llmResponse.Message)

	sess.RecordHistory(narrative.SpeakerLine{
		Speaker: narrative.SpeakerParty,
		Name:    snapshot.Player.Name,
		Text:    request.Message,
	})
	sess.RecordHistory(result.Lines...)

	if err := h.storage.SaveWorld(ctx, sess.ID, sess.World()); err != nil {
		h.logger.Error("Failed to save session after turn", "error", err, "id", sess.ID.String())
		h.publishFailed(request, "save failed")
		h.writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	response := chat.TurnResponse{
		SessionID: sess.ID,
		Lines:     result.Lines,
		Report:    result.Report,
		Snapshot:  &result.Snapshot,
	}
	if result.DecodeErr != nil {
		response.DecodeError = result.DecodeErr.Error()
	}

	h.publishCompleted(ctx, request, result)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding turn response", "error", err)
	}
}

func (h *TurnHandler) publishStarted(ctx context.Context, request chat.TurnRequest) {
	if h.broadcaster == nil {
		return
	}
	if err := h.broadcaster.PublishTurnStarted(ctx, request.SessionID, request.Message); err != nil {
		h.logger.Warn("Failed to publish turn started event", "error", err)
	}
}

func (h *TurnHandler) publishCompleted(ctx context.Context, request chat.TurnRequest, result *turn.Result) {
	if h.broadcaster == nil {
		return
	}
	var applied, rejected, deferred int
	if result.Report != nil {
		applied, rejected, deferred = result.Report.Counts()
	}
	if err := h.broadcaster.PublishTurnCompleted(ctx, request.SessionID, applied, rejected, deferred); err != nil {
		h.logger.Warn("Failed to publish turn completed event", "error", err)
	}
}

func (h *TurnHandler) publishFailed(request chat.TurnRequest, msg string) {
	if h.broadcaster == nil {
		return
	}
	// Use a fresh context so the failure event outlives a cancelled turn.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.broadcaster.PublishTurnFailed(ctx, request.SessionID, msg); err != nil {
		h.logger.Warn("Failed to publish turn failed event", "error", err)
	}
}

func (h *TurnHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(chat.TurnResponse{Error: msg}); err != nil {
		h.logger.Error("Error encoding turn error response", "error", err)
	}
}
