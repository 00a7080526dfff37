package state

import (
	"slices"
	"strings"
)

// Snapshot is a read-only, serializable projection of a World. Every
// pool is a value copy sorted by id, so downstream consumers (prompt
// assembly, presentation) hold no references into the live state.
type Snapshot struct {
	Version int `json:"version"`

	Player Player `json:"player"`
	Stats  []Stat `json:"stats"`

	Powers        []Power        `json:"powers"`
	Party         []PartyMember  `json:"party"`
	NPCs          []NPC          `json:"npcs"`
	Quests        []Quest        `json:"quests"`
	Inventory     []ItemStack    `json:"inventory"`
	Equipment     []EquippedItem `json:"equipment"`
	Loot          []LootDrop     `json:"loot"`
	Currencies    []Currency     `json:"currencies"`
	Relationships []Relationship `json:"relationships"`
	Factions      []FactionRep   `json:"factions"`
	Flags         []string       `json:"flags"`
}

// Stat is a snapshot stat entry.
type Stat struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// Currency is a snapshot balance entry.
type Currency struct {
	Currency string `json:"currency"`
	Amount   int    `json:"amount"`
}

// Project produces a point-in-time snapshot of the world. It is pure:
// the world is not modified and no mutable references leak out. Slice
// fields on player and party members are copied, and pools are sorted
// for deterministic serialization.
func Project(w *World) Snapshot {
	snap := Snapshot{
		Version:       w.Version,
		Player:        copyPlayer(w.Player),
		Stats:         make([]Stat, 0, len(w.Stats)),
		Powers:        make([]Power, 0, len(w.Powers)),
		Party:         make([]PartyMember, 0, len(w.Party)),
		NPCs:          make([]NPC, 0, len(w.NPCs)),
		Quests:        make([]Quest, 0, len(w.Quests)),
		Inventory:     make([]ItemStack, 0, len(w.Inventory)),
		Equipment:     make([]EquippedItem, 0, len(w.Equipment)),
		Loot:          make([]LootDrop, 0, len(w.Loot)),
		Currencies:    make([]Currency, 0, len(w.Currencies)),
		Relationships: make([]Relationship, 0, len(w.Relationships)),
		Factions:      make([]FactionRep, 0, len(w.Factions)),
		Flags:         make([]string, 0, len(w.Flags)),
	}

	for id, v := range w.Stats {
		snap.Stats = append(snap.Stats, Stat{ID: id, Value: v})
	}
	slices.SortFunc(snap.Stats, func(a, b Stat) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, p := range w.Powers {
		snap.Powers = append(snap.Powers, p)
	}
	slices.SortFunc(snap.Powers, func(a, b Power) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, m := range w.Party {
		m.Weapons = slices.Clone(m.Weapons)
		m.Armor = slices.Clone(m.Armor)
		m.Clothing = slices.Clone(m.Clothing)
		snap.Party = append(snap.Party, m)
	}
	slices.SortFunc(snap.Party, func(a, b PartyMember) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, n := range w.NPCs {
		snap.NPCs = append(snap.NPCs, n)
	}
	slices.SortFunc(snap.NPCs, func(a, b NPC) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, q := range w.Quests {
		q.RewardOptions = slices.Clone(q.RewardOptions)
		q.Rewards = slices.Clone(q.Rewards)
		q.SubQuests = slices.Clone(q.SubQuests)
		snap.Quests = append(snap.Quests, q)
	}
	slices.SortFunc(snap.Quests, func(a, b Quest) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, s := range w.Inventory {
		snap.Inventory = append(snap.Inventory, s)
	}
	slices.SortFunc(snap.Inventory, func(a, b ItemStack) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, eq := range w.Equipment {
		snap.Equipment = append(snap.Equipment, eq)
	}
	slices.SortFunc(snap.Equipment, func(a, b EquippedItem) int {
		return strings.Compare(a.ItemID, b.ItemID)
	})

	snap.Loot = append(snap.Loot, w.Loot...)

	for name, amount := range w.Currencies {
		snap.Currencies = append(snap.Currencies, Currency{Currency: name, Amount: amount})
	}
	slices.SortFunc(snap.Currencies, func(a, b Currency) int {
		return strings.Compare(a.Currency, b.Currency)
	})

	for _, rel := range w.Relationships {
		snap.Relationships = append(snap.Relationships, rel)
	}
	slices.SortFunc(snap.Relationships, func(a, b Relationship) int {
		if c := strings.Compare(a.SubjectID, b.SubjectID); c != 0 {
			return c
		}
		return strings.Compare(a.TargetID, b.TargetID)
	})

	for _, f := range w.Factions {
		snap.Factions = append(snap.Factions, f)
	}
	slices.SortFunc(snap.Factions, func(a, b FactionRep) int {
		return strings.Compare(a.ID, b.ID)
	})

	for flag := range w.Flags {
		snap.Flags = append(snap.Flags, flag)
	}
	slices.Sort(snap.Flags)

	return snap
}

func copyPlayer(p Player) Player {
	p.Weapons = slices.Clone(p.Weapons)
	p.Armor = slices.Clone(p.Armor)
	p.Clothing = slices.Clone(p.Clothing)
	return p
}
