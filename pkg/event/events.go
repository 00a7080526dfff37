package event

import (
	"encoding/json"
	"fmt"
)

// Type discriminates event variants on the wire. Values match the
// snake_case "type" field the narrator model is instructed to emit.
type Type string

const (
	TypeGrantPower         Type = "grant_power"
	TypeAddPartyMember     Type = "add_party_member"
	TypePartyUpdate        Type = "party_update"
	TypeNpcSpawn           Type = "npc_spawn"
	TypeNpcJoinParty       Type = "npc_join_party"
	TypeNpcUpdate          Type = "npc_update"
	TypeNpcDespawn         Type = "npc_despawn"
	TypeNpcLeaveParty      Type = "npc_leave_party"
	TypeRelationshipChange Type = "relationship_change"
	TypeModifyStat         Type = "modify_stat"
	TypeAddExp             Type = "add_exp"
	TypeLevelUp            Type = "level_up"
	TypeStartQuest         Type = "start_quest"
	TypeUpdateQuest        Type = "update_quest"
	TypeSetFlag            Type = "set_flag"
	TypeAddItem            Type = "add_item"
	TypeEquipItem          Type = "equip_item"
	TypeUnequipItem        Type = "unequip_item"
	TypeDrop               Type = "drop"
	TypeSpawnLoot          Type = "spawn_loot"
	TypeCurrencyChange     Type = "currency_change"
	TypeCraft              Type = "craft"
	TypeGather             Type = "gather"
	TypeFactionSpawn       Type = "faction_spawn"
	TypeFactionUpdate      Type = "faction_update"
	TypeFactionRepChange   Type = "faction_rep_change"
	TypeCombat             Type = "combat"
	TypeDialogue           Type = "dialogue"
	TypeTravel             Type = "travel"
	TypeRest               Type = "rest"
	TypeRequestRetcon      Type = "request_retcon"
	TypeRequestContext     Type = "request_context"

	// TypeUnknown marks events whose tag was not recognized or whose
	// payload did not decode as its declared variant. The original tag
	// and raw object are preserved for forward compatibility.
	TypeUnknown Type = "unknown"
)

// QuestStatus is caller-specified; the engine enforces no transition order.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// SubQuestUpdate upserts a quest step by id within an update_quest event.
type SubQuestUpdate struct {
	ID          string  `json:"id"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Event is a single proposed state change decoded from the narrator
// model's EVENTS block. It is the union of all variant fields; Type
// selects which subset is meaningful. Fields the engine does not yet
// consume (difficulty, rewards, sub-quests on start_quest, etc.) still
// round-trip through decode without failing.
type Event struct {
	Type Type `json:"type"`

	// Identity and references
	ID        string `json:"id,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	StatID    string `json:"stat_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`

	// Descriptive fields
	Name        *string `json:"name,omitempty"`
	Role        *string `json:"role,omitempty"`
	Details     *string `json:"details,omitempty"`
	Description *string `json:"description,omitempty"`
	Title       *string `json:"title,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Flag        string  `json:"flag,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Slot        string  `json:"slot,omitempty"`
	SetID       *string `json:"set_id,omitempty"`
	Quality     *string `json:"quality,omitempty"`
	Kind        *string `json:"kind,omitempty"`

	// Crafting and gathering
	Recipe   string  `json:"recipe,omitempty"`
	Resource string  `json:"resource,omitempty"`
	Result   *string `json:"result,omitempty"`
	Item     string  `json:"item,omitempty"`

	// Numeric fields; pointers distinguish absent from zero.
	Delta    *int `json:"delta,omitempty"`
	Amount   *int `json:"amount,omitempty"`
	Levels   *int `json:"levels,omitempty"`
	Quantity *int `json:"quantity,omitempty"`

	// Quest fields
	Status        *QuestStatus     `json:"status,omitempty"`
	Difficulty    *string          `json:"difficulty,omitempty"`
	Negotiable    *bool            `json:"negotiable,omitempty"`
	Declinable    *bool            `json:"declinable,omitempty"`
	RewardOptions *StringList      `json:"reward_options,omitempty"`
	Rewards       *StringList      `json:"rewards,omitempty"`
	SubQuests     []SubQuestUpdate `json:"sub_quests,omitempty"`

	// Party member wardrobe and gear deltas
	ClothingAdd    *StringList `json:"clothing_add,omitempty"`
	ClothingRemove *StringList `json:"clothing_remove,omitempty"`
	WeaponsAdd     *StringList `json:"weapons_add,omitempty"`
	WeaponsRemove  *StringList `json:"weapons_remove,omitempty"`
	ArmorAdd       *StringList `json:"armor_add,omitempty"`
	ArmorRemove    *StringList `json:"armor_remove,omitempty"`

	// Context requests
	Topics *StringList `json:"topics,omitempty"`

	// Populated only for TypeUnknown: the tag as it appeared on the
	// wire and the original object, kept for audit and resubmission.
	RawType string          `json:"-"`
	Raw     json.RawMessage `json:"-"`
}

// StringList accepts either a JSON array of strings or a single bare
// string, normalized to a one-element list. Constrained local models
// frequently emit the bare form.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*s = StringList{single}
	return nil
}

// Strings returns the underlying slice, nil-safe.
func (s *StringList) Strings() []string {
	if s == nil {
		return nil
	}
	return *s
}

// Validate checks the required fields of the declared variant. Events
// that fail validation are demoted to TypeUnknown by the decoder rather
// than rejected at apply time, mirroring how a strict schema decode
// would have failed the whole object.
func (e *Event) Validate() error {
	switch e.Type {
	case TypeGrantPower:
		if e.ID == "" || e.Name == nil || e.Description == nil {
			return fmt.Errorf("grant_power requires id, name and description")
		}
	case TypeAddPartyMember:
		if e.ID == "" || e.Name == nil || e.Role == nil {
			return fmt.Errorf("add_party_member requires id, name and role")
		}
	case TypePartyUpdate, TypeNpcJoinParty, TypeNpcUpdate, TypeNpcDespawn,
		TypeNpcLeaveParty, TypeFactionUpdate:
		if e.ID == "" {
			return fmt.Errorf("%s requires id", e.Type)
		}
	case TypeNpcSpawn:
		if e.ID == "" || e.Name == nil || e.Role == nil {
			return fmt.Errorf("npc_spawn requires id, name and role")
		}
	case TypeRelationshipChange:
		if e.SubjectID == "" || e.TargetID == "" || e.Delta == nil {
			return fmt.Errorf("relationship_change requires subject_id, target_id and delta")
		}
	case TypeModifyStat:
		if e.StatID == "" || e.Delta == nil {
			return fmt.Errorf("modify_stat requires stat_id and delta")
		}
	case TypeAddExp:
		if e.Amount == nil {
			return fmt.Errorf("add_exp requires amount")
		}
	case TypeLevelUp:
		if e.Levels == nil {
			return fmt.Errorf("level_up requires levels")
		}
	case TypeStartQuest:
		if e.ID == "" || e.Title == nil {
			return fmt.Errorf("start_quest requires id and title")
		}
	case TypeUpdateQuest:
		if e.ID == "" {
			return fmt.Errorf("update_quest requires id")
		}
	case TypeSetFlag:
		if e.Flag == "" {
			return fmt.Errorf("set_flag requires flag")
		}
	case TypeAddItem:
		if e.ItemID == "" {
			return fmt.Errorf("add_item requires item_id")
		}
	case TypeEquipItem:
		if e.ItemID == "" || e.Slot == "" {
			return fmt.Errorf("equip_item requires item_id and slot")
		}
	case TypeUnequipItem:
		if e.ItemID == "" {
			return fmt.Errorf("unequip_item requires item_id")
		}
	case TypeDrop, TypeSpawnLoot:
		if e.Item == "" {
			return fmt.Errorf("%s requires item", e.Type)
		}
	case TypeCurrencyChange:
		if e.Currency == "" || e.Delta == nil {
			return fmt.Errorf("currency_change requires currency and delta")
		}
	case TypeCraft:
		if e.Recipe == "" {
			return fmt.Errorf("craft requires recipe")
		}
	case TypeGather:
		if e.Resource == "" {
			return fmt.Errorf("gather requires resource")
		}
	case TypeFactionSpawn:
		if e.ID == "" || e.Name == nil {
			return fmt.Errorf("faction_spawn requires id and name")
		}
	case TypeFactionRepChange:
		if e.ID == "" || e.Delta == nil {
			return fmt.Errorf("faction_rep_change requires id and delta")
		}
	case TypeRequestRetcon:
		if e.Reason == "" {
			return fmt.Errorf("request_retcon requires reason")
		}
	case TypeCombat, TypeDialogue, TypeTravel, TypeRest, TypeRequestContext, TypeUnknown:
		// Narrative-only and fallback variants carry no required fields.
	default:
		return fmt.Errorf("unrecognized event type %q", e.Type)
	}
	return nil
}

// ShortName returns a display label for logs and the console transcript.
func (e *Event) ShortName() string {
	if e.Type == TypeUnknown {
		if e.RawType != "" {
			return fmt.Sprintf("unknown(%s)", e.RawType)
		}
		return "unknown"
	}
	return string(e.Type)
}
