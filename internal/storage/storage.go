// Package storage persists session world state. It is used only at
// session boundaries: load before a turn, save after, never during
// batch application.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// Storage persists session worlds.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session world operations
	SaveWorld(ctx context.Context, id uuid.UUID, w *state.World) error
	LoadWorld(ctx context.Context, id uuid.UUID) (*state.World, error)
	DeleteWorld(ctx context.Context, id uuid.UUID) error
}
