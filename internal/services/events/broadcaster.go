// Package events publishes per-session turn notifications over Redis
// Pub/Sub so presentation layers can follow a session without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType classifies a broadcast notification.
type EventType string

const (
	EventTypeTurnStarted   EventType = "turn.started"
	EventTypeTurnCompleted EventType = "turn.completed"
	EventTypeTurnFailed    EventType = "turn.failed"
)

// Event is one notification on a session channel.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes session events to Redis Pub/Sub.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishTurnStarted notes that a turn began processing.
func (b *Broadcaster) PublishTurnStarted(ctx context.Context, sessionID uuid.UUID, userMessage string) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeTurnStarted,
		SessionID: sessionID.String(),
		Data: map[string]any{
			"user_message": userMessage,
		},
	})
}

// PublishTurnCompleted carries the per-event outcome tallies of a
// finished turn.
func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, sessionID uuid.UUID, applied, rejected, deferred int) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeTurnCompleted,
		SessionID: sessionID.String(),
		Data: map[string]any{
			"applied":  applied,
			"rejected": rejected,
			"deferred": deferred,
		},
	})
}

// PublishTurnFailed reports a collaborator or decode failure.
func (b *Broadcaster) PublishTurnFailed(ctx context.Context, sessionID uuid.UUID, errorMsg string) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeTurnFailed,
		SessionID: sessionID.String(),
		Data: map[string]any{
			"error": errorMsg,
		},
	})
}

// Subscribe returns the Pub/Sub subscription for one session channel.
// The caller owns closing it.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(sessionID))
}

// Channel names the Pub/Sub channel for a session.
func Channel(sessionID uuid.UUID) string {
	return "session-events:" + sessionID.String()
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	channel := Channel(sessionID)
	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}
