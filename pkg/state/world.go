// Package state holds the authoritative world state for a narrative
// session and the engine that applies decoded events to it. The world
// is only ever mutated through the apply engine; every other consumer
// sees it through immutable snapshots.
package state

import (
	"math"

	"github.com/jwebster45206/narrative-engine/pkg/narrative"
)

// Default player seed values. Stats are fixed at world creation: the
// engine can adjust existing stat values but never invent new keys.
const (
	DefaultStatValue     = 10
	DefaultHP            = 100
	DefaultPartyHP       = 100
	DefaultExpToNext     = 100
	DefaultExpMultiplier = 2.0
)

// MaxQuantity is the ceiling for inventory and loot stack sizes.
// Quantity additions saturate here instead of wrapping.
const MaxQuantity = math.MaxUint32

// QuestStatus values are caller-specified; no transition order is
// enforced beyond the quest having to exist.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// Player is the protagonist's sheet.
type Player struct {
	Name          string   `json:"name"`
	Level         int      `json:"level"`
	Exp           int      `json:"exp"`
	ExpToNext     int      `json:"exp_to_next"`
	ExpMultiplier float64  `json:"exp_multiplier"`
	HP            int      `json:"hp"`
	MaxHP         int      `json:"max_hp"`
	Weapons       []string `json:"weapons,omitempty"`
	Armor         []string `json:"armor,omitempty"`
	Clothing      []string `json:"clothing,omitempty"`
}

// Power is a granted ability, unique per id.
type Power struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PartyMember is a companion travelling with the player. An id is in
// the party or the NPC pool, never both.
type PartyMember struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Details  string   `json:"details,omitempty"`
	HP       int      `json:"hp"`
	Weapons  []string `json:"weapons,omitempty"`
	Armor    []string `json:"armor,omitempty"`
	Clothing []string `json:"clothing,omitempty"`
}

// NPC is a world character outside the party. Nearby tracks whether the
// character is present in the current scene; despawning clears it
// rather than deleting the record.
type NPC struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Notes  string `json:"notes,omitempty"`
	Nearby bool   `json:"nearby"`
}

// Quest tracks an objective and its caller-specified status.
type Quest struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Status         QuestStatus `json:"status"`
	Difficulty     string      `json:"difficulty,omitempty"`
	Negotiable     bool        `json:"negotiable,omitempty"`
	RewardOptions  []string    `json:"reward_options,omitempty"`
	Rewards        []string    `json:"rewards,omitempty"`
	SubQuests      []QuestStep `json:"sub_quests,omitempty"`
	RewardsClaimed bool        `json:"rewards_claimed,omitempty"`
}

// QuestStep is one objective within a quest.
type QuestStep struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed,omitempty"`
}

// ItemStack is an owned inventory entry.
type ItemStack struct {
	ID          string `json:"id"`
	Quantity    uint32 `json:"quantity"`
	Description string `json:"description,omitempty"`
	SetID       string `json:"set_id,omitempty"`
}

// LootDrop is world-spawned loot not yet owned by the player.
type LootDrop struct {
	Item        string `json:"item"`
	Quantity    uint32 `json:"quantity"`
	Description string `json:"description,omitempty"`
	SetID       string `json:"set_id,omitempty"`
}

// EquippedItem is a worn or wielded item keyed by item id.
type EquippedItem struct {
	ItemID      string `json:"item_id"`
	Slot        string `json:"slot"`
	SetID       string `json:"set_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// Relationship is a directional feeling from subject toward target.
// (A,B) and (B,A) are distinct entries.
type Relationship struct {
	SubjectID string `json:"subject_id"`
	TargetID  string `json:"target_id"`
	Value     int    `json:"value"`
}

// FactionRep is a known faction and the player's standing with it.
type FactionRep struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	Reputation  int    `json:"reputation"`
}

// World is the authoritative mutable aggregate for one session. Pools
// are keyed maps; relationship keys are "subject::target".
type World struct {
	Version int `json:"version"`

	Player Player         `json:"player"`
	Stats  map[string]int `json:"stats"`

	Powers        map[string]Power        `json:"powers,omitempty"`
	Party         map[string]PartyMember  `json:"party,omitempty"`
	NPCs          map[string]NPC          `json:"npcs,omitempty"`
	Quests        map[string]Quest        `json:"quests,omitempty"`
	Inventory     map[string]ItemStack    `json:"inventory,omitempty"`
	Equipment     map[string]EquippedItem `json:"equipment,omitempty"`
	Loot          []LootDrop              `json:"loot,omitempty"`
	Currencies    map[string]int          `json:"currencies,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Factions      map[string]FactionRep   `json:"factions,omitempty"`
	Flags         map[string]bool         `json:"flags,omitempty"`

	// History is the running transcript of speaker lines, in turn
	// order. It rides along with the world so a restored session keeps
	// its conversational continuity, but it is not part of the
	// projected snapshot.
	History []narrative.SpeakerLine `json:"history,omitempty"`
}

// NewWorld creates a fresh world with the named player, baseline stats
// seeded at DefaultStatValue, and empty pools.
func NewWorld(playerName string) *World {
	if playerName == "" {
		playerName = "Player"
	}
	return &World{
		Version: 1,
		Player: Player{
			Name:          playerName,
			Level:         1,
			Exp:           0,
			ExpToNext:     DefaultExpToNext,
			ExpMultiplier: DefaultExpMultiplier,
			HP:            DefaultHP,
			MaxHP:         DefaultHP,
		},
		Stats: map[string]int{
			"strength":     DefaultStatValue,
			"dexterity":    DefaultStatValue,
			"intelligence": DefaultStatValue,
		},
		Powers:        make(map[string]Power),
		Party:         make(map[string]PartyMember),
		NPCs:          make(map[string]NPC),
		Quests:        make(map[string]Quest),
		Inventory:     make(map[string]ItemStack),
		Equipment:     make(map[string]EquippedItem),
		Currencies:    make(map[string]int),
		Relationships: make(map[string]Relationship),
		Factions:      make(map[string]FactionRep),
		Flags:         make(map[string]bool),
	}
}

// ensurePools replaces nil pool maps with empty ones. Pools are tagged
// omitempty, so a world that went through a JSON round trip with empty
// pools comes back with nil maps; normalizing here keeps the apply
// engine free of per-write nil checks.
func (w *World) ensurePools() {
	if w.Stats == nil {
		w.Stats = make(map[string]int)
	}
	if w.Powers == nil {
		w.Powers = make(map[string]Power)
	}
	if w.Party == nil {
		w.Party = make(map[string]PartyMember)
	}
	if w.NPCs == nil {
		w.NPCs = make(map[string]NPC)
	}
	if w.Quests == nil {
		w.Quests = make(map[string]Quest)
	}
	if w.Inventory == nil {
		w.Inventory = make(map[string]ItemStack)
	}
	if w.Equipment == nil {
		w.Equipment = make(map[string]EquippedItem)
	}
	if w.Currencies == nil {
		w.Currencies = make(map[string]int)
	}
	if w.Relationships == nil {
		w.Relationships = make(map[string]Relationship)
	}
	if w.Factions == nil {
		w.Factions = make(map[string]FactionRep)
	}
	if w.Flags == nil {
		w.Flags = make(map[string]bool)
	}
}

// RelationshipKey builds the directional composite key for a pair.
func RelationshipKey(subjectID, targetID string) string {
	return subjectID + "::" + targetID
}

// HasStat reports whether the stat key was seeded at creation.
func (w *World) HasStat(statID string) bool {
	_, ok := w.Stats[statID]
	return ok
}

// AdjustStat adds delta to an existing stat. It reports false when the
// stat key is unknown; the engine surfaces that as a deferral, never by
// creating the key.
func (w *World) AdjustStat(statID string, delta int) bool {
	v, ok := w.Stats[statID]
	if !ok {
		return false
	}
	w.Stats[statID] = v + delta
	return true
}

// AddRelationship applies a delta to the directional pair entry,
// creating it at zero on first reference.
func (w *World) AddRelationship(subjectID, targetID string, delta int) Relationship {
	if w.Relationships == nil {
		w.Relationships = make(map[string]Relationship)
	}
	key := RelationshipKey(subjectID, targetID)
	rel, ok := w.Relationships[key]
	if !ok {
		rel = Relationship{SubjectID: subjectID, TargetID: targetID}
	}
	rel.Value += delta
	w.Relationships[key] = rel
	return rel
}

// AddCurrency applies a signed delta to a balance, creating it at zero.
// Balances may go negative; no floor is enforced here.
func (w *World) AddCurrency(currency string, delta int) int {
	if w.Currencies == nil {
		w.Currencies = make(map[string]int)
	}
	w.Currencies[currency] += delta
	return w.Currencies[currency]
}

// AddItem saturating-adds quantity to an inventory stack, creating the
// stack at zero on first reference.
func (w *World) AddItem(itemID string, quantity uint32, setID string) ItemStack {
	if w.Inventory == nil {
		w.Inventory = make(map[string]ItemStack)
	}
	stack, ok := w.Inventory[itemID]
	if !ok {
		stack = ItemStack{ID: itemID}
	}
	stack.Quantity = saturatingAdd(stack.Quantity, quantity)
	if stack.SetID == "" {
		stack.SetID = setID
	}
	w.Inventory[itemID] = stack
	return stack
}

// AppendLoot records a world loot drop. Quantity is floored at 1.
func (w *World) AppendLoot(drop LootDrop) {
	if drop.Quantity < 1 {
		drop.Quantity = 1
	}
	w.Loot = append(w.Loot, drop)
}

// SetFlag inserts a flag token. Setting an already-set flag is a no-op.
func (w *World) SetFlag(flag string) {
	if w.Flags == nil {
		w.Flags = make(map[string]bool)
	}
	w.Flags[flag] = true
}

// MoveNPCToParty transfers an id from the NPC pool into the party as a
// single mutation, so no observer sees the id in both pools or neither.
// It reports false when the id is not in the NPC pool.
func (w *World) MoveNPCToParty(id string) (PartyMember, bool) {
	npc, ok := w.NPCs[id]
	if !ok {
		return PartyMember{}, false
	}
	member := PartyMember{
		ID:   id,
		Name: npc.Name,
		Role: npc.Role,
		HP:   DefaultPartyHP,
	}
	delete(w.NPCs, id)
	w.Party[id] = member
	return member, true
}

// MovePartyToNPC transfers a party member back into the NPC pool with
// emptied notes, again as one mutation. It reports false when the id is
// not in the party.
func (w *World) MovePartyToNPC(id string) (NPC, bool) {
	member, ok := w.Party[id]
	if !ok {
		return NPC{}, false
	}
	npc := NPC{
		ID:     id,
		Name:   member.Name,
		Role:   member.Role,
		Nearby: true,
	}
	delete(w.Party, id)
	w.NPCs[id] = npc
	return npc, true
}

func saturatingAdd(a, b uint32) uint32 {
	if a > MaxQuantity-b {
		return MaxQuantity
	}
	return a + b
}
