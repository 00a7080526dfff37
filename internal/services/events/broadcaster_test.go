package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBroadcaster(client, logger), client
}

func receiveEvent(t *testing.T, pubsub *redis.PubSub) Event {
	t.Helper()
	select {
	case msg := <-pubsub.Channel():
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("Failed to unmarshal event: %v", err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_PublishAndSubscribe(t *testing.T) {
	b, _ := testBroadcaster(t)
	ctx := context.Background()
	sessionID := uuid.New()

	pubsub := b.Subscribe(ctx, sessionID)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("Subscribe handshake failed: %v", err)
	}

	if err := b.PublishTurnStarted(ctx, sessionID, "I open the door."); err != nil {
		t.Fatalf("PublishTurnStarted failed: %v", err)
	}
	ev := receiveEvent(t, pubsub)
	if ev.Type != EventTypeTurnStarted {
		t.Errorf("Expected %s, got %s", EventTypeTurnStarted, ev.Type)
	}
	if ev.SessionID != sessionID.String() {
		t.Errorf("Expected session %s, got %s", sessionID, ev.SessionID)
	}
	if ev.Data["user_message"] != "I open the door." {
		t.Errorf("Unexpected data: %v", ev.Data)
	}

	if err := b.PublishTurnCompleted(ctx, sessionID, 2, 1, 0); err != nil {
		t.Fatalf("PublishTurnCompleted failed: %v", err)
	}
	ev = receiveEvent(t, pubsub)
	if ev.Type != EventTypeTurnCompleted {
		t.Errorf("Expected %s, got %s", EventTypeTurnCompleted, ev.Type)
	}
	// JSON round trip turns the tallies into float64.
	if ev.Data["applied"] != float64(2) || ev.Data["rejected"] != float64(1) {
		t.Errorf("Unexpected tallies: %v", ev.Data)
	}

	if err := b.PublishTurnFailed(ctx, sessionID, "llm call failed"); err != nil {
		t.Fatalf("PublishTurnFailed failed: %v", err)
	}
	ev = receiveEvent(t, pubsub)
	if ev.Type != EventTypeTurnFailed {
		t.Errorf("Expected %s, got %s", EventTypeTurnFailed, ev.Type)
	}
}

func TestBroadcaster_ChannelIsolation(t *testing.T) {
	b, _ := testBroadcaster(t)
	ctx := context.Background()
	listening := uuid.New()
	other := uuid.New()

	pubsub := b.Subscribe(ctx, listening)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("Subscribe handshake failed: %v", err)
	}

	if err := b.PublishTurnStarted(ctx, other, "elsewhere"); err != nil {
		t.Fatalf("PublishTurnStarted failed: %v", err)
	}
	if err := b.PublishTurnStarted(ctx, listening, "here"); err != nil {
		t.Fatalf("PublishTurnStarted failed: %v", err)
	}

	// Only the listening session's event arrives.
	ev := receiveEvent(t, pubsub)
	if ev.SessionID != listening.String() {
		t.Errorf("Received event for wrong session: %s", ev.SessionID)
	}
	if ev.Data["user_message"] != "here" {
		t.Errorf("Unexpected message: %v", ev.Data)
	}
}
