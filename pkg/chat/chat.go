// Package chat defines the message shapes shared by the LLM provider
// clients and the HTTP API.
package chat

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in the conversation sent to the LLM.
// The role/content shape follows the common chat-completions contract.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the provider-neutral result of one LLM call.
type ChatResponse struct {
	Message string `json:"message"`
}

// TurnRequest asks the API to run one narrative turn for a session.
type TurnRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Message   string    `json:"message"`
}

func (tr *TurnRequest) Validate() error {
	if tr.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if tr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// TurnResponse is the per-turn result: the segmented narration, the
// outcome of every proposed event (1:1 with the decoded batch), and the
// post-batch snapshot. DecodeError is set when the events payload was
// malformed at the top level; narration is still returned in that case.
type TurnResponse struct {
	SessionID   uuid.UUID               `json:"session_id"`
	Lines       []narrative.SpeakerLine `json:"lines,omitempty"`
	Report      *event.Report           `json:"report,omitempty"`
	Snapshot    *state.Snapshot         `json:"snapshot,omitempty"`
	DecodeError string                  `json:"decode_error,omitempty"`
	Error       string                  `json:"error,omitempty"`
}
