package services

import (
	"context"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

// LLMService is the narrator-model collaborator: a request/response
// call taking rendered messages and returning response text. Retry,
// backoff and section parsing all live outside this interface.
type LLMService interface {
	// InitModel prepares the model on startup.
	InitModel(ctx context.Context, modelName string) error

	// GenerateResponse runs one chat completion.
	GenerateResponse(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// IsModelReady checks whether the model can serve requests.
	IsModelReady(ctx context.Context, modelName string) (bool, error)
}
