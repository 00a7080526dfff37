// Package worker consumes queued turn requests and runs them through
// the same pipeline the synchronous API uses. One worker processes one
// session at a time; a Redis lock keeps two workers off the same
// session.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/services"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
	"github.com/jwebster45206/narrative-engine/pkg/prompts"
	"github.com/jwebster45206/narrative-engine/pkg/state"
	"github.com/jwebster45206/narrative-engine/pkg/turn"
)

// TurnProcessor runs one queued turn end to end: load the world, build
// the prompt, call the LLM, apply the proposed events, persist.
type TurnProcessor struct {
	llmService services.LLMService
	storage    storage.Storage
	world      *prompts.World
	processor  *turn.Processor
	logger     *slog.Logger
}

func NewTurnProcessor(llmService services.LLMService, storage storage.Storage, world *prompts.World, logger *slog.Logger) *TurnProcessor {
	return &TurnProcessor{
		llmService: llmService,
		storage:    storage,
		world:      world,
		processor:  turn.NewProcessor(logger),
		logger:     logger,
	}
}

// Run executes one turn for the session and returns the per-event
// outcome. Storage errors and LLM errors abort the turn; the stored
// world is only written after a successful LLM round trip.
func (p *TurnProcessor) Run(ctx context.Context, sessionID uuid.UUID, message string) (*turn.Result, error) {
	world, err := p.storage.LoadWorld(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess := state.Restore(sessionID, world, p.logger)

	snapshot := sess.Snapshot()
	messages, err := prompts.New().
		WithWorld(p.world).
		WithSnapshot(&snapshot).
		WithHistory(sess.History()).
		WithUserMessage(message).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	llmResponse, err := p.llmService.GenerateResponse(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	result := p.processor.ProcessTurn(sess, llmResponse.Message)

	sess.RecordHistory(narrative.SpeakerLine{
		Speaker: narrative.SpeakerParty,
		Name:    snapshot.Player.Name,
		Text:    message,
	})
	sess.RecordHistory(result.Lines...)

	if err := p.storage.SaveWorld(ctx, sess.ID, sess.World()); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return result, nil
}
