package state

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jwebster45206/narrative-engine/pkg/event"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
func boolPtr(b bool) *bool { return &b }

func listPtr(items ...string) *event.StringList {
	sl := event.StringList(items)
	return &sl
}
func statusPtr(s event.QuestStatus) *event.QuestStatus { return &s }

func testApplier(t *testing.T) (*World, *Applier) {
	t.Helper()
	w := NewWorld("Arden")
	return w, NewApplier(w, nil)
}

func requireApplied(t *testing.T, o event.Outcome) {
	t.Helper()
	if o.Status != event.StatusApplied {
		t.Fatalf("Expected applied, got %s (%s)", o.Status, o.Reason)
	}
}

func requireRejected(t *testing.T, o event.Outcome) {
	t.Helper()
	if o.Status != event.StatusRejected {
		t.Fatalf("Expected rejected, got %s (%s)", o.Status, o.Reason)
	}
}

func requireDeferred(t *testing.T, o event.Outcome) {
	t.Helper()
	if o.Status != event.StatusDeferred {
		t.Fatalf("Expected deferred, got %s (%s)", o.Status, o.Reason)
	}
}

func TestApplyBatch_ReportAlignment(t *testing.T) {
	w := NewWorld("Arden")
	events := []event.Event{
		{Type: event.TypeSetFlag, Flag: "gate_open"},
		{Type: event.TypeModifyStat, StatID: "charisma", Delta: intPtr(1)}, // unknown stat
		{Type: event.TypeRest},
	}

	report := ApplyBatch(w, events, nil)
	if len(report.Applications) != len(events) {
		t.Fatalf("Expected %d outcomes, got %d", len(events), len(report.Applications))
	}
	applied, rejected, deferred := report.Counts()
	if applied != 2 || rejected != 0 || deferred != 1 {
		t.Errorf("Unexpected counts: %d applied, %d rejected, %d deferred", applied, rejected, deferred)
	}
	for i, app := range report.Applications {
		if app.Event.Type != events[i].Type {
			t.Errorf("Outcome %d is not aligned with its event", i)
		}
	}
}

func TestApply_GrantPower(t *testing.T) {
	w, a := testApplier(t)
	e := event.Event{
		Type:        event.TypeGrantPower,
		ID:          "second_sight",
		Name:        strPtr("Second Sight"),
		Description: strPtr("See what is hidden."),
	}
	requireApplied(t, a.Apply(e))
	if w.Powers["second_sight"].Name != "Second Sight" {
		t.Errorf("Power not stored: %+v", w.Powers)
	}

	// Duplicate grants are rejected, not overwritten.
	e.Description = strPtr("Changed description")
	requireRejected(t, a.Apply(e))
	if w.Powers["second_sight"].Description != "See what is hidden." {
		t.Error("Rejected duplicate must not modify the stored power")
	}
}

func TestApply_PartyLifecycle(t *testing.T) {
	w, a := testApplier(t)

	add := event.Event{
		Type: event.TypeAddPartyMember,
		ID:   "mira",
		Name: strPtr("Mira"),
		Role: strPtr("Scout"),
	}
	requireApplied(t, a.Apply(add))
	if w.Party["mira"].HP != DefaultPartyHP {
		t.Errorf("Expected default HP %d, got %d", DefaultPartyHP, w.Party["mira"].HP)
	}
	requireRejected(t, a.Apply(add))

	update := event.Event{
		Type:        event.TypePartyUpdate,
		ID:          "mira",
		Details:     strPtr("Limps slightly."),
		ClothingAdd: listPtr("green cloak", "", "green cloak"),
		WeaponsAdd:  listPtr("shortbow"),
	}
	requireApplied(t, a.Apply(update))
	member := w.Party["mira"]
	if member.Details != "Limps slightly." {
		t.Errorf("Unexpected details %q", member.Details)
	}
	if len(member.Clothing) != 1 || member.Clothing[0] != "green cloak" {
		t.Errorf("Expected deduped clothing, got %v", member.Clothing)
	}
	if len(member.Weapons) != 1 {
		t.Errorf("Expected one weapon, got %v", member.Weapons)
	}

	// Repeating identical details must not duplicate them.
	requireApplied(t, a.Apply(update))
	if w.Party["mira"].Details != "Limps slightly." {
		t.Errorf("Details duplicated: %q", w.Party["mira"].Details)
	}

	missing := event.Event{Type: event.TypePartyUpdate, ID: "ghost"}
	requireDeferred(t, a.Apply(missing))
}

func TestApply_PartyUpdate_DetailsCap(t *testing.T) {
	w, a := testApplier(t)
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeAddPartyMember,
		ID:   "mira", Name: strPtr("Mira"), Role: strPtr("Scout"),
	}))

	long := strings.Repeat("a", 500)
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypePartyUpdate, ID: "mira", Details: &long,
	}))
	got := w.Party["mira"].Details
	if len(got) != 320 {
		t.Errorf("Expected details capped at 320, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("Expected truncation marker")
	}
}

func TestApply_PartyUpdate_ListDeltaCap(t *testing.T) {
	w, a := testApplier(t)
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeAddPartyMember,
		ID:   "mira", Name: strPtr("Mira"), Role: strPtr("Scout"),
	}))

	items := make([]string, 12)
	for i := range items {
		items[i] = strings.Repeat("x", i+1)
	}
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypePartyUpdate, ID: "mira",
		ClothingAdd: listPtr(items...),
	}))
	if got := len(w.Party["mira"].Clothing); got != 8 {
		t.Errorf("Expected clothing delta capped at 8, got %d", got)
	}
}

func TestApply_NPCLifecycle(t *testing.T) {
	w, a := testApplier(t)

	spawn := event.Event{
		Type: event.TypeNpcSpawn,
		ID:   "finn",
		Name: strPtr("Old Finn"),
		Role: strPtr("Ferryman"),
	}
	requireApplied(t, a.Apply(spawn))
	if !w.NPCs["finn"].Nearby {
		t.Error("Spawned NPC should be nearby")
	}
	requireRejected(t, a.Apply(spawn))

	// Update appends novel notes with a separator and upserts unknowns.
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeNpcUpdate, ID: "finn", Details: strPtr("Owes the player a favor."),
	}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeNpcUpdate, ID: "finn", Details: strPtr("Afraid of deep water."),
	}))
	notes := w.NPCs["finn"].Notes
	if !strings.Contains(notes, " | ") {
		t.Errorf("Expected separator in notes, got %q", notes)
	}

	requireApplied(t, a.Apply(event.Event{Type: event.TypeNpcUpdate, ID: "stranger"}))
	if w.NPCs["stranger"].Name != "Unknown" {
		t.Errorf("Upserted NPC should default to Unknown, got %q", w.NPCs["stranger"].Name)
	}

	requireApplied(t, a.Apply(event.Event{Type: event.TypeNpcDespawn, ID: "finn"}))
	if w.NPCs["finn"].Nearby {
		t.Error("Despawn should clear nearby, not delete")
	}
	if _, ok := w.NPCs["finn"]; !ok {
		t.Error("Despawn must keep the record")
	}
	requireDeferred(t, a.Apply(event.Event{Type: event.TypeNpcDespawn, ID: "nobody"}))
}

func TestApply_PartyNPCDisjointness(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeNpcSpawn, ID: "finn",
		Name: strPtr("Old Finn"), Role: strPtr("Ferryman"),
	}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeNpcUpdate, ID: "finn", Details: strPtr("Knows the reef."),
	}))

	requireApplied(t, a.Apply(event.Event{Type: event.TypeNpcJoinParty, ID: "finn"}))
	if _, ok := w.NPCs["finn"]; ok {
		t.Error("Joined NPC must leave the NPC pool")
	}
	member, ok := w.Party["finn"]
	if !ok {
		t.Fatal("Joined NPC must be in the party")
	}
	if member.Name != "Old Finn" || member.Role != "Ferryman" {
		t.Errorf("Name and role must carry over, got %+v", member)
	}
	if member.HP != DefaultPartyHP {
		t.Errorf("Expected HP reset to %d, got %d", DefaultPartyHP, member.HP)
	}

	// Round trip back out of the party.
	requireApplied(t, a.Apply(event.Event{Type: event.TypeNpcLeaveParty, ID: "finn"}))
	if _, ok := w.Party["finn"]; ok {
		t.Error("Departed member must leave the party pool")
	}
	npc, ok := w.NPCs["finn"]
	if !ok {
		t.Fatal("Departed member must return to the NPC pool")
	}
	if npc.Name != "Old Finn" || npc.Role != "Ferryman" {
		t.Errorf("Name and role must survive the round trip, got %+v", npc)
	}
	if npc.Notes != "" {
		t.Errorf("Notes must reset on leaving the party, got %q", npc.Notes)
	}

	requireRejected(t, a.Apply(event.Event{Type: event.TypeNpcLeaveParty, ID: "finn"}))
}

func TestApply_NpcJoinParty_DirectCreate(t *testing.T) {
	w, a := testApplier(t)

	// Unknown id with no name is rejected.
	requireRejected(t, a.Apply(event.Event{Type: event.TypeNpcJoinParty, ID: "kit"}))
	requireRejected(t, a.Apply(event.Event{
		Type: event.TypeNpcJoinParty, ID: "kit", Name: strPtr("Kit"),
	}))

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeNpcJoinParty, ID: "kit",
		Name: strPtr("Kit"), Role: strPtr("Tinker"),
	}))
	if w.Party["kit"].Role != "Tinker" {
		t.Errorf("Direct-created member missing role: %+v", w.Party["kit"])
	}

	requireRejected(t, a.Apply(event.Event{
		Type: event.TypeNpcJoinParty, ID: "kit",
		Name: strPtr("Kit"), Role: strPtr("Tinker"),
	}))
}

func TestApply_Relationships_Directional(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeRelationshipChange,
		SubjectID: "mira", TargetID: "finn", Delta: intPtr(2),
	}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeRelationshipChange,
		SubjectID: "mira", TargetID: "finn", Delta: intPtr(3),
	}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeRelationshipChange,
		SubjectID: "finn", TargetID: "mira", Delta: intPtr(-1),
	}))

	if got := w.Relationships[RelationshipKey("mira", "finn")].Value; got != 5 {
		t.Errorf("Expected accumulated value 5, got %d", got)
	}
	if got := w.Relationships[RelationshipKey("finn", "mira")].Value; got != -1 {
		t.Errorf("Reverse direction must be independent, got %d", got)
	}
}

func TestApply_Stats(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeModifyStat, StatID: "strength", Delta: intPtr(-3),
	}))
	if w.Stats["strength"] != DefaultStatValue-3 {
		t.Errorf("Expected %d, got %d", DefaultStatValue-3, w.Stats["strength"])
	}

	// Unknown stats are deferred and never lazily created.
	requireDeferred(t, a.Apply(event.Event{
		Type: event.TypeModifyStat, StatID: "luck", Delta: intPtr(1),
	}))
	if _, ok := w.Stats["luck"]; ok {
		t.Error("Deferral must not create the stat")
	}
}

func TestApply_Flags_Idempotent(t *testing.T) {
	w, a := testApplier(t)
	e := event.Event{Type: event.TypeSetFlag, Flag: "gate_open"}
	requireApplied(t, a.Apply(e))
	requireApplied(t, a.Apply(e))
	if len(w.Flags) != 1 || !w.Flags["gate_open"] {
		t.Errorf("Unexpected flags: %v", w.Flags)
	}
}

func TestApply_Inventory_Saturates(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeAddItem, ItemID: "rope", Quantity: intPtr(2),
	}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeAddItem, ItemID: "rope",
	}))
	if got := w.Inventory["rope"].Quantity; got != 3 {
		t.Errorf("Expected 3 rope (nil quantity defaults to 1), got %d", got)
	}

	w.Inventory["rope"] = ItemStack{ID: "rope", Quantity: MaxQuantity - 1}
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeAddItem, ItemID: "rope", Quantity: intPtr(10),
	}))
	if got := w.Inventory["rope"].Quantity; got != MaxQuantity {
		t.Errorf("Expected saturation at %d, got %d", uint32(MaxQuantity), got)
	}
}

func TestApply_LootAndGathering(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeSpawnLoot, Item: "iron key", Quantity: intPtr(0),
	}))
	if w.Loot[0].Quantity != 1 {
		t.Errorf("Loot quantity floors at 1, got %d", w.Loot[0].Quantity)
	}

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeGather, Resource: "driftwood", Quantity: intPtr(3), Quality: strPtr("fine"),
	}))
	drop := w.Loot[1]
	if drop.Item != "driftwood" || drop.Quantity != 3 {
		t.Errorf("Unexpected gather drop: %+v", drop)
	}
	if drop.Description != "Gathered quality: fine" {
		t.Errorf("Unexpected description %q", drop.Description)
	}

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeCraft, Recipe: "fishing rod", Result: strPtr("sturdy rod"),
	}))
	if w.Loot[2].Item != "sturdy rod" {
		t.Errorf("Craft should prefer result name, got %q", w.Loot[2].Item)
	}
}

func TestApply_EquipUnequip(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeAddItem, ItemID: "iron sword", Quantity: intPtr(2),
	}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeEquipItem, ItemID: "iron sword", Slot: "weapon",
	}))
	if w.Inventory["iron sword"].Quantity != 1 {
		t.Errorf("Equip should consume one unit, got %d", w.Inventory["iron sword"].Quantity)
	}
	if _, ok := w.Equipment["iron sword"]; !ok {
		t.Error("Equipped item missing from equipment map")
	}
	if len(w.Player.Weapons) != 1 {
		t.Errorf("Expected weapon slot routing, got %v", w.Player.Weapons)
	}

	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeUnequipItem, ItemID: "iron sword",
	}))
	if _, ok := w.Equipment["iron sword"]; ok {
		t.Error("Unequip must clear the equipment entry")
	}
	if len(w.Player.Weapons) != 0 {
		t.Errorf("Unequip must clear the slot list, got %v", w.Player.Weapons)
	}
	if w.Inventory["iron sword"].Quantity != 2 {
		t.Errorf("Unequip should return the unit, got %d", w.Inventory["iron sword"].Quantity)
	}
}

func TestApply_ExpAndLevels(t *testing.T) {
	w, a := testApplier(t)

	// 100 to next, multiplier 2.0: 150 exp crosses one threshold.
	requireApplied(t, a.Apply(event.Event{Type: event.TypeAddExp, Amount: intPtr(150)}))
	p := w.Player
	if p.Level != 2 {
		t.Errorf("Expected level 2, got %d", p.Level)
	}
	if p.Exp != 50 {
		t.Errorf("Expected 50 carried exp, got %d", p.Exp)
	}
	if p.ExpToNext != 200 {
		t.Errorf("Expected threshold 200, got %d", p.ExpToNext)
	}

	requireApplied(t, a.Apply(event.Event{Type: event.TypeLevelUp, Levels: intPtr(2)}))
	p = w.Player
	if p.Level != 4 {
		t.Errorf("Expected level 4, got %d", p.Level)
	}
	if p.ExpToNext != 800 {
		t.Errorf("Expected threshold 800, got %d", p.ExpToNext)
	}
}

func TestApply_QuestLifecycle(t *testing.T) {
	w, a := testApplier(t)

	start := event.Event{
		Type:  event.TypeStartQuest,
		ID:    "reef_charts",
		Title: strPtr("Chart the Reef"),
		SubQuests: []event.SubQuestUpdate{
			{ID: "hire_boat", Description: strPtr("Hire a boat")},
		},
	}
	requireApplied(t, a.Apply(start))
	if w.Quests["reef_charts"].Status != QuestActive {
		t.Errorf("New quests start active, got %s", w.Quests["reef_charts"].Status)
	}
	requireRejected(t, a.Apply(start))

	requireDeferred(t, a.Apply(event.Event{Type: event.TypeUpdateQuest, ID: "nope"}))

	// Sub-quest upsert: existing id updates, new id appends.
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeUpdateQuest, ID: "reef_charts",
		SubQuests: []event.SubQuestUpdate{
			{ID: "hire_boat", Completed: boolPtr(true)},
			{ID: "sound_depths", Description: strPtr("Sound the depths")},
		},
	}))
	quest := w.Quests["reef_charts"]
	if len(quest.SubQuests) != 2 {
		t.Fatalf("Expected 2 sub quests, got %d", len(quest.SubQuests))
	}
	if !quest.SubQuests[0].Completed {
		t.Error("Existing sub quest should be completed")
	}
}

func TestApply_QuestRewards_PayOnce(t *testing.T) {
	w, a := testApplier(t)

	requireApplied(t, a.Apply(event.Event{
		Type:    event.TypeStartQuest,
		ID:      "reef_charts",
		Title:   strPtr("Chart the Reef"),
		Rewards: listPtr("50 gold", "rope x3", "leather cuirass", "sable cloak (set: court)"),
	}))

	complete := event.Event{
		Type: event.TypeUpdateQuest, ID: "reef_charts",
		Status: statusPtr(event.QuestCompleted),
	}
	requireApplied(t, a.Apply(complete))

	if got := w.Currencies["gold"]; got != 50 {
		t.Errorf("Expected 50 gold, got %d", got)
	}
	if got := w.Inventory["rope"].Quantity; got != 3 {
		t.Errorf("Expected 3 rope, got %d", got)
	}
	if len(w.Player.Armor) != 1 || w.Player.Armor[0] != "leather cuirass" {
		t.Errorf("Cuirass should route to armor, got %v", w.Player.Armor)
	}
	if len(w.Player.Clothing) != 1 || w.Player.Clothing[0] != "sable cloak" {
		t.Errorf("Cloak should route to clothing with set marker stripped, got %v", w.Player.Clothing)
	}
	if got := w.Inventory["sable cloak"].Quantity; got != 0 {
		t.Errorf("Clothing reward must not also hit inventory, got %d", got)
	}

	// A second completion update must not pay again.
	requireApplied(t, a.Apply(complete))
	if got := w.Currencies["gold"]; got != 50 {
		t.Errorf("Rewards paid twice: %d gold", got)
	}
}

func TestApply_Factions(t *testing.T) {
	w, a := testApplier(t)

	spawn := event.Event{
		Type: event.TypeFactionSpawn, ID: "tide_guild",
		Name: strPtr("Tide Guild"), Kind: strPtr("guild"),
	}
	requireApplied(t, a.Apply(spawn))
	requireRejected(t, a.Apply(spawn))

	requireDeferred(t, a.Apply(event.Event{Type: event.TypeFactionUpdate, ID: "nope"}))
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeFactionUpdate, ID: "tide_guild",
		Description: strPtr("Controls the docks."),
	}))
	if w.Factions["tide_guild"].Description != "Controls the docks." {
		t.Errorf("Update not merged: %+v", w.Factions["tide_guild"])
	}

	// Rep changes lazily create unknown factions.
	requireApplied(t, a.Apply(event.Event{
		Type: event.TypeFactionRepChange, ID: "ash_court", Delta: intPtr(-5),
	}))
	if w.Factions["ash_court"].Reputation != -5 {
		t.Errorf("Expected rep -5, got %d", w.Factions["ash_court"].Reputation)
	}
}

func TestApply_NarrativeOnlyAndDeferrals(t *testing.T) {
	_, a := testApplier(t)

	for _, typ := range []event.Type{event.TypeCombat, event.TypeDialogue, event.TypeTravel, event.TypeRest} {
		requireApplied(t, a.Apply(event.Event{Type: typ}))
	}

	requireDeferred(t, a.Apply(event.Event{Type: event.TypeRequestRetcon, Reason: "wrong NPC died"}))
	requireDeferred(t, a.Apply(event.Event{Type: event.TypeRequestContext}))
	requireDeferred(t, a.Apply(event.Event{Type: event.TypeUnknown, RawType: "mystery"}))
}

func TestApply_InvalidEventDefers(t *testing.T) {
	_, a := testApplier(t)
	// Hand-built event missing required pointer fields must not panic.
	requireDeferred(t, a.Apply(event.Event{Type: event.TypeModifyStat, StatID: "strength"}))
	requireDeferred(t, a.Apply(event.Event{Type: event.TypeGrantPower, ID: "p"}))
}

func TestApply_BatchOrderVisibility(t *testing.T) {
	w := NewWorld("Arden")
	report := ApplyBatch(w, []event.Event{
		{Type: event.TypeStartQuest, ID: "q", Title: strPtr("Quest")},
		{Type: event.TypeUpdateQuest, ID: "q", Status: statusPtr(event.QuestCompleted)},
	}, nil)

	applied, _, _ := report.Counts()
	if applied != 2 {
		t.Fatalf("Later events must see earlier mutations, got %d applied", applied)
	}
	if w.Quests["q"].Status != QuestCompleted {
		t.Errorf("Unexpected status %s", w.Quests["q"].Status)
	}
}

func TestApply_AfterPersistenceRoundTrip(t *testing.T) {
	// A fresh world's pools are empty and tagged omitempty, so a JSON
	// round trip hands back nil maps. The first pool-creating event of
	// every family must still apply cleanly.
	data, err := json.Marshal(NewWorld("Arden"))
	if err != nil {
		t.Fatal(err)
	}
	var w World
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatal(err)
	}

	report := ApplyBatch(&w, []event.Event{
		{Type: event.TypeGrantPower, ID: "second_sight", Name: strPtr("Second Sight"), Description: strPtr("See what is hidden.")},
		{Type: event.TypeAddPartyMember, ID: "mira", Name: strPtr("Mira"), Role: strPtr("Scout")},
		{Type: event.TypeNpcSpawn, ID: "finn", Name: strPtr("Old Finn"), Role: strPtr("Ferryman")},
		{Type: event.TypeNpcJoinParty, ID: "kit", Name: strPtr("Kit"), Role: strPtr("Tinker")},
		{Type: event.TypeStartQuest, ID: "reef_charts", Title: strPtr("Chart the Reef")},
		{Type: event.TypeAddItem, ItemID: "iron sword"},
		{Type: event.TypeEquipItem, ItemID: "iron sword", Slot: "weapon"},
		{Type: event.TypeCurrencyChange, Currency: "gold", Delta: intPtr(10)},
		{Type: event.TypeRelationshipChange, SubjectID: "mira", TargetID: "finn", Delta: intPtr(1)},
		{Type: event.TypeFactionSpawn, ID: "tide_guild", Name: strPtr("Tide Guild"), Kind: strPtr("guild")},
		{Type: event.TypeSetFlag, Flag: "gate_open"},
	}, nil)

	applied, rejected, deferred := report.Counts()
	if rejected != 0 || deferred != 0 {
		t.Fatalf("Expected all applied, got %d applied, %d rejected, %d deferred: %+v",
			applied, rejected, deferred, report.Outcomes())
	}

	if _, ok := w.Powers["second_sight"]; !ok {
		t.Error("Power missing after round-tripped apply")
	}
	if _, ok := w.Party["mira"]; !ok {
		t.Error("Party member missing after round-tripped apply")
	}
	if _, ok := w.NPCs["finn"]; !ok {
		t.Error("NPC missing after round-tripped apply")
	}
	if _, ok := w.Quests["reef_charts"]; !ok {
		t.Error("Quest missing after round-tripped apply")
	}
	if _, ok := w.Equipment["iron sword"]; !ok {
		t.Error("Equipment missing after round-tripped apply")
	}
	if _, ok := w.Factions["tide_guild"]; !ok {
		t.Error("Faction missing after round-tripped apply")
	}
	if w.Currencies["gold"] != 10 || !w.Flags["gate_open"] {
		t.Error("Currency or flag missing after round-tripped apply")
	}
}
