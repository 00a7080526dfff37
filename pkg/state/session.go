package state

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
)

// Session owns one world for its lifetime and serializes access to it.
// ApplyBatch holds the write lock for the whole batch and Snapshot the
// read lock for the whole projection, so a concurrent reader observes
// either the pre-batch or the post-batch state, never a torn one.
// Sessions are independent: tests and multi-tenant callers each hold
// their own rather than sharing process-global state.
type Session struct {
	ID uuid.UUID `json:"id"`

	mu     sync.RWMutex
	world  *World
	logger *slog.Logger
}

// NewSession creates a session around a fresh world.
func NewSession(playerName string, logger *slog.Logger) *Session {
	return Restore(uuid.New(), NewWorld(playerName), logger)
}

// Restore rebuilds a session from persisted identity and world state.
func Restore(id uuid.UUID, w *World, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	w.ensurePools()
	return &Session{
		ID:     id,
		world:  w,
		logger: logger.With("session_id", id.String()),
	}
}

// ApplyBatch applies a decoded event batch in order under the write
// lock, returning one outcome per event. Once started, the batch runs
// to completion; there is no mid-batch cancellation.
func (s *Session) ApplyBatch(events []event.Event) *event.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := ApplyBatch(s.world, events, s.logger)
	applied, rejected, deferred := report.Counts()
	s.logger.Info("event batch applied",
		"events", len(events),
		"applied", applied,
		"rejected", rejected,
		"deferred", deferred)
	return report
}

// Snapshot projects the current world under the read lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Project(s.world)
}

// History returns a copy of the session transcript.
func (s *Session) History() []narrative.SpeakerLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]narrative.SpeakerLine, len(s.world.History))
	copy(out, s.world.History)
	return out
}

// RecordHistory appends speaker lines to the session transcript.
func (s *Session) RecordHistory(lines ...narrative.SpeakerLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world.History = append(s.world.History, lines...)
}

// World exposes the underlying state for persistence at session
// boundaries. The caller must not retain the pointer across batch
// applications.
func (s *Session) World() *World {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.world
}
