package state

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/event"
)

// Applier validates decoded events against a world and applies the ones
// that pass, recording one outcome per event. Events in a batch are
// applied strictly in order against the state left by the previous
// event; later events may reference entities created earlier in the
// same batch. The caller owns batch serialization (see Session).
type Applier struct {
	w      *World
	logger *slog.Logger
}

// NewApplier creates an applier bound to a world.
func NewApplier(w *World, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	w.ensurePools()
	return &Applier{w: w, logger: logger}
}

// ApplyBatch applies events in submission order and returns a report
// aligned 1:1 with the input. It always runs the full sequence; there
// is no mid-batch abort.
func ApplyBatch(w *World, events []event.Event, logger *slog.Logger) *event.Report {
	a := NewApplier(w, logger)
	report := &event.Report{Applications: make([]event.Application, 0, len(events))}
	for _, e := range events {
		outcome := a.Apply(e)
		if outcome.Status != event.StatusApplied {
			a.logger.Debug("event not applied",
				"type", e.ShortName(),
				"status", outcome.Status,
				"reason", outcome.Reason)
		}
		report.Applications = append(report.Applications, event.Application{
			Event:   e,
			Outcome: outcome,
		})
	}
	return report
}

// Apply validates and applies a single event.
func (a *Applier) Apply(e event.Event) event.Outcome {
	if err := e.Validate(); err != nil {
		return event.Deferredf("invalid event: %v", err)
	}
	switch e.Type {
	case event.TypeGrantPower:
		return a.grantPower(e)
	case event.TypeAddPartyMember:
		return a.addPartyMember(e)
	case event.TypePartyUpdate:
		return a.partyUpdate(e)
	case event.TypeNpcSpawn:
		return a.npcSpawn(e)
	case event.TypeNpcJoinParty:
		return a.npcJoinParty(e)
	case event.TypeNpcUpdate:
		return a.npcUpdate(e)
	case event.TypeNpcDespawn:
		return a.npcDespawn(e)
	case event.TypeNpcLeaveParty:
		return a.npcLeaveParty(e)
	case event.TypeRelationshipChange:
		a.w.AddRelationship(e.SubjectID, e.TargetID, *e.Delta)
		return event.Applied()
	case event.TypeModifyStat:
		if !a.w.AdjustStat(e.StatID, *e.Delta) {
			return event.Deferredf("unknown stat %q", e.StatID)
		}
		return event.Applied()
	case event.TypeAddExp:
		a.addExp(*e.Amount)
		return event.Applied()
	case event.TypeLevelUp:
		a.levelUp(*e.Levels)
		return event.Applied()
	case event.TypeStartQuest:
		return a.startQuest(e)
	case event.TypeUpdateQuest:
		return a.updateQuest(e)
	case event.TypeSetFlag:
		a.w.SetFlag(e.Flag)
		return event.Applied()
	case event.TypeAddItem:
		a.w.AddItem(e.ItemID, eventQuantity(e.Quantity), strValue(e.SetID))
		return event.Applied()
	case event.TypeEquipItem:
		a.equipItem(e)
		return event.Applied()
	case event.TypeUnequipItem:
		a.unequipItem(e.ItemID)
		return event.Applied()
	case event.TypeDrop, event.TypeSpawnLoot:
		a.w.AppendLoot(LootDrop{
			Item:        e.Item,
			Quantity:    eventQuantity(e.Quantity),
			Description: strValue(e.Description),
			SetID:       strValue(e.SetID),
		})
		return event.Applied()
	case event.TypeCurrencyChange:
		a.w.AddCurrency(e.Currency, *e.Delta)
		return event.Applied()
	case event.TypeCraft:
		return a.craft(e)
	case event.TypeGather:
		return a.gather(e)
	case event.TypeFactionSpawn:
		return a.factionSpawn(e)
	case event.TypeFactionUpdate:
		return a.factionUpdate(e)
	case event.TypeFactionRepChange:
		return a.factionRepChange(e)
	case event.TypeCombat, event.TypeDialogue, event.TypeTravel, event.TypeRest:
		// Narrative-only events carry no mutation; recorded for audit.
		return event.Applied()
	case event.TypeRequestRetcon:
		return event.Deferredf("retcon requested: %s", e.Reason)
	case event.TypeRequestContext:
		return event.Deferredf("context requested")
	case event.TypeUnknown:
		return event.Deferredf("unrecognized event type %q", e.RawType)
	default:
		return event.Deferredf("unrecognized event type %q", e.Type)
	}
}

func (a *Applier) grantPower(e event.Event) event.Outcome {
	if _, exists := a.w.Powers[e.ID]; exists {
		return event.Rejectedf("power %q already exists", e.ID)
	}
	a.w.Powers[e.ID] = Power{
		ID:          e.ID,
		Name:        *e.Name,
		Description: *e.Description,
	}
	return event.Applied()
}

func (a *Applier) addPartyMember(e event.Event) event.Outcome {
	if _, exists := a.w.Party[e.ID]; exists {
		return event.Rejectedf("party member %q already exists", e.ID)
	}
	a.w.Party[e.ID] = PartyMember{
		ID:   e.ID,
		Name: *e.Name,
		Role: *e.Role,
		HP:   DefaultPartyHP,
	}
	return event.Applied()
}

// partyUpdate merges the provided fields into an existing member.
// Details are appended only when novel and capped; item lists drop
// blanks and are truncated before applying.
func (a *Applier) partyUpdate(e event.Event) event.Outcome {
	member, ok := a.w.Party[e.ID]
	if !ok {
		return event.Deferredf("party member %q not found", e.ID)
	}

	if v := trimmedValue(e.Name); v != "" {
		member.Name = v
	}
	if v := trimmedValue(e.Role); v != "" {
		member.Role = v
	}
	if v := trimmedValue(e.Details); v != "" {
		member.Details = appendDetails(member.Details, truncateDetails(v))
	}
	member.Clothing = applyListDelta(member.Clothing, e.ClothingAdd, e.ClothingRemove)
	member.Weapons = applyListDelta(member.Weapons, e.WeaponsAdd, e.WeaponsRemove)
	member.Armor = applyListDelta(member.Armor, e.ArmorAdd, e.ArmorRemove)

	a.w.Party[e.ID] = member
	return event.Applied()
}

func (a *Applier) npcSpawn(e event.Event) event.Outcome {
	if _, exists := a.w.NPCs[e.ID]; exists {
		return event.Rejectedf("npc %q already exists", e.ID)
	}
	a.w.NPCs[e.ID] = NPC{
		ID:     e.ID,
		Name:   *e.Name,
		Role:   *e.Role,
		Notes:  strValue(e.Details),
		Nearby: true,
	}
	return event.Applied()
}

// npcJoinParty moves an NPC into the party, preserving name and role.
// When the id is not in the NPC pool, caller-supplied name and role are
// required to create the member directly.
func (a *Applier) npcJoinParty(e event.Event) event.Outcome {
	if _, exists := a.w.Party[e.ID]; exists {
		return event.Rejectedf("party member %q already exists", e.ID)
	}
	if _, ok := a.w.MoveNPCToParty(e.ID); ok {
		return event.Applied()
	}
	name := trimmedValue(e.Name)
	role := trimmedValue(e.Role)
	if name == "" {
		return event.Rejectedf("npc %q not found and no name provided", e.ID)
	}
	if role == "" {
		return event.Rejectedf("npc %q not found and no role provided", e.ID)
	}
	a.w.Party[e.ID] = PartyMember{
		ID:   e.ID,
		Name: name,
		Role: role,
		HP:   DefaultPartyHP,
	}
	return event.Applied()
}

// npcUpdate upserts an NPC record and marks it nearby. Novel details
// are appended with a separator.
func (a *Applier) npcUpdate(e event.Event) event.Outcome {
	npc, ok := a.w.NPCs[e.ID]
	if !ok {
		npc = NPC{
			ID:   e.ID,
			Name: "Unknown",
			Role: "Unknown",
		}
	}
	if v := trimmedValue(e.Name); v != "" {
		npc.Name = v
	}
	if v := trimmedValue(e.Role); v != "" {
		npc.Role = v
	}
	if v := trimmedValue(e.Details); v != "" && !strings.Contains(npc.Notes, v) {
		if npc.Notes != "" {
			npc.Notes += " | "
		}
		npc.Notes += v
	}
	npc.Nearby = true
	a.w.NPCs[e.ID] = npc
	return event.Applied()
}

func (a *Applier) npcDespawn(e event.Event) event.Outcome {
	npc, ok := a.w.NPCs[e.ID]
	if !ok {
		return event.Deferredf("npc %q not found", e.ID)
	}
	npc.Nearby = false
	a.w.NPCs[e.ID] = npc
	return event.Applied()
}

func (a *Applier) npcLeaveParty(e event.Event) event.Outcome {
	if _, ok := a.w.MovePartyToNPC(e.ID); !ok {
		return event.Rejectedf("party member %q not found", e.ID)
	}
	return event.Applied()
}

func (a *Applier) startQuest(e event.Event) event.Outcome {
	if _, exists := a.w.Quests[e.ID]; exists {
		return event.Rejectedf("quest %q already exists", e.ID)
	}
	quest := Quest{
		ID:            e.ID,
		Title:         *e.Title,
		Description:   strValue(e.Description),
		Status:        QuestActive,
		Difficulty:    strValue(e.Difficulty),
		Negotiable:    boolValue(e.Negotiable),
		RewardOptions: e.RewardOptions.Strings(),
		Rewards:       e.Rewards.Strings(),
	}
	for _, sq := range e.SubQuests {
		quest.SubQuests = append(quest.SubQuests, QuestStep{
			ID:          sq.ID,
			Description: subQuestDescription(sq),
			Completed:   boolValue(sq.Completed),
		})
	}
	a.w.Quests[e.ID] = quest
	return event.Applied()
}

// updateQuest merges fields into an existing quest and upserts sub
// quests by id. When the status becomes Completed, pending rewards pay
// out exactly once.
func (a *Applier) updateQuest(e event.Event) event.Outcome {
	quest, ok := a.w.Quests[e.ID]
	if !ok {
		return event.Deferredf("quest %q not found", e.ID)
	}

	if v := trimmedValue(e.Title); v != "" {
		quest.Title = v
	}
	if e.Description != nil {
		quest.Description = *e.Description
	}
	if e.Status != nil {
		quest.Status = QuestStatus(*e.Status)
	}
	if v := trimmedValue(e.Difficulty); v != "" {
		quest.Difficulty = v
	}
	if e.Negotiable != nil {
		quest.Negotiable = *e.Negotiable
	}
	if e.RewardOptions != nil {
		quest.RewardOptions = e.RewardOptions.Strings()
	}
	if e.Rewards != nil {
		quest.Rewards = e.Rewards.Strings()
	}

	for _, sq := range e.SubQuests {
		idx := -1
		for i := range quest.SubQuests {
			if quest.SubQuests[i].ID == sq.ID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			if sq.Description != nil {
				quest.SubQuests[idx].Description = *sq.Description
			}
			if sq.Completed != nil {
				quest.SubQuests[idx].Completed = *sq.Completed
			}
		} else {
			quest.SubQuests = append(quest.SubQuests, QuestStep{
				ID:          sq.ID,
				Description: subQuestDescription(sq),
				Completed:   boolValue(sq.Completed),
			})
		}
	}

	payRewards := quest.Status == QuestCompleted && !quest.RewardsClaimed && len(quest.Rewards) > 0
	if payRewards {
		quest.RewardsClaimed = true
	}
	a.w.Quests[e.ID] = quest
	if payRewards {
		a.applyQuestRewards(quest.Rewards)
	}
	return event.Applied()
}

func (a *Applier) factionSpawn(e event.Event) event.Outcome {
	if _, exists := a.w.Factions[e.ID]; exists {
		return event.Rejectedf("faction %q already exists", e.ID)
	}
	a.w.Factions[e.ID] = FactionRep{
		ID:          e.ID,
		Name:        *e.Name,
		Kind:        strValue(e.Kind),
		Description: strValue(e.Description),
	}
	return event.Applied()
}

func (a *Applier) factionUpdate(e event.Event) event.Outcome {
	faction, ok := a.w.Factions[e.ID]
	if !ok {
		return event.Deferredf("faction %q not found", e.ID)
	}
	if v := trimmedValue(e.Name); v != "" {
		faction.Name = v
	}
	if v := trimmedValue(e.Kind); v != "" {
		faction.Kind = v
	}
	if v := trimmedValue(e.Description); v != "" {
		faction.Description = v
	}
	a.w.Factions[e.ID] = faction
	return event.Applied()
}

func (a *Applier) factionRepChange(e event.Event) event.Outcome {
	faction, ok := a.w.Factions[e.ID]
	if !ok {
		faction = FactionRep{ID: e.ID, Name: "Unknown Faction"}
	}
	faction.Reputation += *e.Delta
	a.w.Factions[e.ID] = faction
	return event.Applied()
}

func (a *Applier) craft(e event.Event) event.Outcome {
	item := e.Recipe
	if v := trimmedValue(e.Result); v != "" {
		item = v
	}
	drop := LootDrop{
		Item:     item,
		Quantity: eventQuantity(e.Quantity),
		SetID:    strValue(e.SetID),
	}
	if q := trimmedValue(e.Quality); q != "" {
		drop.Description = fmt.Sprintf("Crafted quality: %s", q)
	}
	a.w.AppendLoot(drop)
	return event.Applied()
}

func (a *Applier) gather(e event.Event) event.Outcome {
	drop := LootDrop{
		Item:     e.Resource,
		Quantity: eventQuantity(e.Quantity),
		SetID:    strValue(e.SetID),
	}
	if q := trimmedValue(e.Quality); q != "" {
		drop.Description = fmt.Sprintf("Gathered quality: %s", q)
	}
	a.w.AppendLoot(drop)
	return event.Applied()
}

// equipItem moves one unit from inventory into the equipment map and
// routes the item into the player's slot list by keyword.
func (a *Applier) equipItem(e event.Event) {
	slot := strings.ToLower(strings.TrimSpace(e.Slot))
	a.w.Equipment[e.ItemID] = EquippedItem{
		ItemID:      e.ItemID,
		Slot:        slot,
		SetID:       strValue(e.SetID),
		Description: strValue(e.Description),
	}
	if stack, ok := a.w.Inventory[e.ItemID]; ok {
		if stack.Quantity > 1 {
			stack.Quantity--
			a.w.Inventory[e.ItemID] = stack
		} else {
			delete(a.w.Inventory, e.ItemID)
		}
	}
	switch slot {
	case "weapon", "weapons":
		a.w.Player.Weapons = appendUnique(a.w.Player.Weapons, e.ItemID)
	case "armor", "armour":
		a.w.Player.Armor = appendUnique(a.w.Player.Armor, e.ItemID)
	case "clothing":
		a.w.Player.Clothing = appendUnique(a.w.Player.Clothing, e.ItemID)
	}
}

// unequipItem reverses equipItem: the item leaves every slot list and
// one unit returns to inventory.
func (a *Applier) unequipItem(itemID string) {
	delete(a.w.Equipment, itemID)
	a.w.Player.Weapons = removeFold(a.w.Player.Weapons, itemID)
	a.w.Player.Armor = removeFold(a.w.Player.Armor, itemID)
	a.w.Player.Clothing = removeFold(a.w.Player.Clothing, itemID)
	a.w.AddItem(itemID, 1, "")
}

// addExp accumulates experience, leveling up each time the threshold is
// crossed. The threshold scales by the player's multiplier per level.
func (a *Applier) addExp(amount int) {
	p := &a.w.Player
	exp := max(p.Exp+amount, 0)
	next := max(p.ExpToNext, 1)
	mult := max(p.ExpMultiplier, 1.0)

	for exp >= next {
		exp -= next
		p.Level++
		next = scaleThreshold(next, mult)
	}
	p.Exp = exp
	p.ExpToNext = next
}

func (a *Applier) levelUp(levels int) {
	p := &a.w.Player
	next := max(p.ExpToNext, 1)
	mult := max(p.ExpMultiplier, 1.0)
	for range levels {
		p.Level++
		next = scaleThreshold(next, mult)
	}
	p.ExpToNext = next
}

func scaleThreshold(next int, mult float64) int {
	scaled := int(float64(next)*mult + 0.5)
	if scaled < 1 {
		return 1
	}
	return scaled
}

// applyQuestRewards interprets freeform reward strings. "<amount>
// <currency>" credits a balance; otherwise an optional "xN" quantity
// suffix and "(set:...)" marker are stripped, and the item routes to a
// player slot list by keyword or into inventory.
func (a *Applier) applyQuestRewards(rewards []string) {
	for _, reward := range rewards {
		reward = strings.TrimSpace(reward)
		if reward == "" {
			continue
		}
		if amount, currency, ok := parseCurrencyReward(reward); ok {
			a.w.AddCurrency(currency, amount)
			continue
		}
		itemRaw, quantity := splitQuantitySuffix(reward)
		item, setID := extractSetID(itemRaw)
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		switch {
		case looksLikeClothing(item):
			a.w.Player.Clothing = appendUnique(a.w.Player.Clothing, item)
		case looksLikeArmor(item):
			a.w.Player.Armor = appendUnique(a.w.Player.Armor, item)
		case looksLikeWeapon(item):
			a.w.Player.Weapons = appendUnique(a.w.Player.Weapons, item)
		default:
			a.w.AddItem(item, uint32(max(quantity, 1)), setID)
		}
	}
}

func eventQuantity(q *int) uint32 {
	if q == nil || *q < 1 {
		return 1
	}
	if uint64(*q) > uint64(MaxQuantity) {
		return MaxQuantity
	}
	return uint32(*q)
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmedValue(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func subQuestDescription(sq event.SubQuestUpdate) string {
	if v := trimmedValue(sq.Description); v != "" {
		return v
	}
	return "Unnamed objective"
}

const detailsLimit = 320

func truncateDetails(s string) string {
	if len(s) <= detailsLimit {
		return s
	}
	return s[:detailsLimit-3] + "..."
}

// appendDetails adds novel text to an existing details blob.
func appendDetails(existing, addition string) string {
	if strings.TrimSpace(existing) == "" {
		return addition
	}
	if strings.Contains(existing, addition) {
		return existing
	}
	return strings.TrimRight(existing, "\n") + "\n" + addition
}

const listDeltaLimit = 8

// applyListDelta adds then removes entries from a wardrobe or gear
// list. Blank entries are dropped and each delta list is capped.
func applyListDelta(list []string, add, remove *event.StringList) []string {
	for _, item := range sanitizeItems(add) {
		list = appendUnique(list, item)
	}
	for _, item := range sanitizeItems(remove) {
		list = removeFold(list, item)
	}
	return list
}

func sanitizeItems(sl *event.StringList) []string {
	items := make([]string, 0)
	for _, item := range sl.Strings() {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == listDeltaLimit {
			break
		}
	}
	return items
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, item) {
			return list
		}
	}
	return append(list, item)
}

func removeFold(list []string, item string) []string {
	out := list[:0]
	for _, existing := range list {
		if !strings.EqualFold(existing, item) {
			out = append(out, existing)
		}
	}
	return out
}

func parseCurrencyReward(reward string) (int, string, bool) {
	first, rest, ok := strings.Cut(reward, " ")
	if !ok {
		return 0, "", false
	}
	var amount int
	if _, err := fmt.Sscanf(first, "%d", &amount); err != nil {
		return 0, "", false
	}
	currency := strings.TrimSpace(rest)
	if currency == "" {
		return 0, "", false
	}
	return amount, currency, true
}

func splitQuantitySuffix(reward string) (string, int) {
	idx := strings.LastIndexByte(reward, ' ')
	if idx < 0 {
		return reward, 1
	}
	last := strings.ToLower(strings.TrimSpace(reward[idx+1:]))
	num, ok := strings.CutPrefix(last, "x")
	if !ok {
		return reward, 1
	}
	var qty int
	if _, err := fmt.Sscanf(num, "%d", &qty); err != nil || qty < 1 {
		return reward, 1
	}
	return strings.TrimSpace(reward[:idx]), qty
}

func extractSetID(raw string) (string, string) {
	for _, marks := range [][2]string{{"(set:", ")"}, {"[set:", "]"}} {
		before, rest, ok := strings.Cut(raw, marks[0])
		if !ok {
			continue
		}
		set, after, ok := strings.Cut(rest, marks[1])
		if !ok {
			continue
		}
		return strings.TrimSpace(before + after), strings.TrimSpace(set)
	}
	return raw, ""
}

func looksLikeClothing(item string) bool {
	return containsKeyword(item, clothingKeywords)
}

func looksLikeArmor(item string) bool {
	return containsKeyword(item, armorKeywords)
}

func looksLikeWeapon(item string) bool {
	return containsKeyword(item, weaponKeywords)
}

func containsKeyword(item string, keywords []string) bool {
	item = strings.ToLower(item)
	for _, k := range keywords {
		if strings.Contains(item, k) {
			return true
		}
	}
	return false
}

var clothingKeywords = []string{
	"clothing", "shirt", "blouse", "top", "tee", "t-shirt", "sweater",
	"hoodie", "coat", "jacket", "pants", "jeans", "trousers", "shorts",
	"skirt", "dress", "gown", "robe", "cloak", "tunic", "vest", "boots",
	"gloves", "cap", "hat", "belt", "scarf", "socks", "stockings",
}

var armorKeywords = []string{
	"armor", "armour", "helm", "helmet", "breastplate", "cuirass",
	"gauntlet", "greaves", "pauldron", "shield", "mail", "chainmail",
	"plate",
}

var weaponKeywords = []string{
	"sword", "axe", "bow", "dagger", "mace", "spear", "staff", "wand",
	"hammer", "halberd", "crossbow", "rifle", "pistol", "gun", "blade",
}
