// Package queue defines the wire shape of asynchronously submitted
// turns. Requests wait on a shared Redis list until a worker picks
// them up; results come back over the session event channel.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request is one queued turn.
type Request struct {
	RequestID  string    `json:"request_id"`
	SessionID  uuid.UUID `json:"session_id"`
	Message    string    `json:"message"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest builds a queued turn with a fresh request id.
func NewRequest(sessionID uuid.UUID, message string) *Request {
	return &Request{
		RequestID:  uuid.NewString(),
		SessionID:  sessionID,
		Message:    message,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (r *Request) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if r.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if r.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}
