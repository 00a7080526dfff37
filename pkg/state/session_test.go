package state

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
)

func TestSession_Restore(t *testing.T) {
	w := NewWorld("Arden")
	w.SetFlag("gate_open")
	id := uuid.New()

	sess := Restore(id, w, nil)
	if sess.ID != id {
		t.Errorf("Expected id %s, got %s", id, sess.ID)
	}
	snap := sess.Snapshot()
	if len(snap.Flags) != 1 || snap.Flags[0] != "gate_open" {
		t.Errorf("Restored world lost state: %v", snap.Flags)
	}
}

func TestSession_RestoreFromSerializedWorld(t *testing.T) {
	data, err := json.Marshal(NewWorld("Arden"))
	if err != nil {
		t.Fatal(err)
	}
	var w World
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatal(err)
	}

	// Empty pools are omitted on the wire; a restored session must
	// still accept pool-creating events.
	sess := Restore(uuid.New(), &w, nil)
	report := sess.ApplyBatch([]event.Event{
		{Type: event.TypeNpcSpawn, ID: "finn", Name: strPtr("Old Finn"), Role: strPtr("Ferryman")},
	})
	applied, _, _ := report.Counts()
	if applied != 1 {
		t.Fatalf("Expected npc_spawn to apply, got %+v", report.Outcomes())
	}
	snap := sess.Snapshot()
	if len(snap.NPCs) != 1 || snap.NPCs[0].ID != "finn" {
		t.Errorf("NPC missing from snapshot: %+v", snap.NPCs)
	}
}

func TestSession_ApplyBatchAndSnapshot(t *testing.T) {
	sess := NewSession("Arden", nil)

	report := sess.ApplyBatch([]event.Event{
		{Type: event.TypeSetFlag, Flag: "gate_open"},
		{Type: event.TypeAddItem, ItemID: "rope"},
	})
	applied, rejected, deferred := report.Counts()
	if applied != 2 || rejected != 0 || deferred != 0 {
		t.Fatalf("Unexpected counts: %d/%d/%d", applied, rejected, deferred)
	}

	snap := sess.Snapshot()
	if len(snap.Inventory) != 1 || snap.Inventory[0].ID != "rope" {
		t.Errorf("Snapshot missing applied state: %+v", snap.Inventory)
	}
}

func TestSession_History(t *testing.T) {
	sess := NewSession("Arden", nil)
	sess.RecordHistory(narrative.SpeakerLine{Speaker: narrative.SpeakerNarrator, Text: "It rains."})

	hist := sess.History()
	if len(hist) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(hist))
	}

	// The returned slice is a copy.
	hist[0].Text = "mutated"
	if sess.History()[0].Text != "It rains." {
		t.Error("History returned a live reference")
	}
}

// Concurrent readers against a writer must always observe a consistent
// snapshot. Run with -race.
func TestSession_ConcurrentAccess(t *testing.T) {
	sess := NewSession("Arden", nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := sess.Snapshot()
				// Stats are seeded at creation and never removed.
				if len(snap.Stats) != 3 {
					t.Errorf("Torn snapshot: %d stats", len(snap.Stats))
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			sess.ApplyBatch([]event.Event{
				{Type: event.TypeAddItem, ItemID: "rope"},
				{Type: event.TypeRest},
			})
		}
	}()

	wg.Wait()

	snap := sess.Snapshot()
	if snap.Inventory[0].Quantity != 50 {
		t.Errorf("Expected 50 rope after all batches, got %d", snap.Inventory[0].Quantity)
	}
}
