package mission

import (
	"context"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/quest"
)

// Payload key aliases, in priority order. Dotted keys address nested maps.
var (
	ActorKeys    = []string{"character", "characterId", "character_id", "actorId", "actor", "playerId", "character.id", "player.id"}
	NPCKeys      = []string{"npcId", "npc_id", "npc.id", "targetId", "target.id", "speakerId"}
	ItemKeys     = []string{"itemId", "item_id", "item.id", "itemType", "item_type", "item.type"}
	BuildingKeys = []string{"buildingId", "building_id", "building.id"}
	AreaKeys     = []string{"areaId", "area_id", "area.id", "locationId", "location_id", "location.id", "buildingId", "building_id", "building.id", "zoneId", "portalId", "destination"}
	PartnerKeys  = []string{"partnerId", "partner_id", "companionId", "companion_id", "companion.id", "partner.id"}
	ActionKeys   = []string{"actionId", "action_id", "action", "targetId", "target_id", "target.id", "objectId", "object_id", "npcId", "npc_id"}
	AbilityKeys  = []string{"abilities", "abilitiesUsed", "ability", "abilityId", "ability_id"}
	QuantityKeys = []string{"quantity", "count", "amount", "qty"}
	SwitchKeys   = []string{"to", "characterId", "character", "newCharacter"}
)

// Condition keys accepted per match dimension.
var (
	NPCConditionKeys      = []string{"npc_id", "npc", "target_id"}
	ItemConditionKeys     = []string{"item_type", "item_id", "item"}
	TargetConditionKeys   = []string{"npc_id", "building_id", "target_id", "recipient"}
	AreaConditionKeys     = []string{"area_id", "location_id", "building_id", "zone_id", "area", "location", "destination"}
	PartnerConditionKeys  = []string{"partner_id", "companion_id", "character_id"}
	ActionConditionKeys   = []string{"action", "action_id", "target_id", "object_id", "npc_id"}
	AbilityConditionKeys  = []string{"ability", "required_ability"}
	EventConditionKey     = "event"
	deliverTargetPayloads = append(append([]string(nil), NPCKeys...), BuildingKeys...)
)

// matchRule describes which events an objective type reacts to and how the
// event's identifier is compared with the objective's conditions.
type matchRule struct {
	events        []string
	payloadKeys   []string
	conditionKeys []string
	abilities     bool
	contribution  string
}

var interactionEvents = []string{event.CustomAction, event.CompanionAbilityUsed, event.NPCInteraction}

var rules = map[quest.ObjectiveType]matchRule{
	quest.ObjectiveTalk: {
		events:        []string{event.NPCInteraction, event.DialogueEnd},
		payloadKeys:   NPCKeys,
		conditionKeys: NPCConditionKeys,
		contribution:  quest.ContributionTalk,
	},
	quest.ObjectiveCollect: {
		events:        []string{event.ItemCollected},
		payloadKeys:   ItemKeys,
		conditionKeys: ItemConditionKeys,
		contribution:  quest.ContributionCollect,
	},
	quest.ObjectiveExplore: {
		events:        []string{event.AreaExplored, event.LocationDiscovered, event.LocationEntered, event.BuildingEntered, event.PortalEntered},
		payloadKeys:   AreaKeys,
		conditionKeys: AreaConditionKeys,
		contribution:  quest.ContributionExplore,
	},
	quest.ObjectiveGoToLocation: {
		events:        []string{event.LocationEntered, event.LocationDiscovered, event.BuildingEntered, event.PortalEntered, event.AreaExplored},
		payloadKeys:   AreaKeys,
		conditionKeys: AreaConditionKeys,
		contribution:  quest.ContributionExplore,
	},
	quest.ObjectiveAssist: {
		events:        []string{event.PartnerSummoned, event.CompanionCalled, event.CompanionAbilityUsed, event.CustomAction},
		payloadKeys:   PartnerKeys,
		conditionKeys: PartnerConditionKeys,
		abilities:     true,
		contribution:  quest.ContributionAssist,
	},
	quest.ObjectiveFixBuild:    interactionRule(),
	quest.ObjectiveEscort:      interactionRule(),
	quest.ObjectiveInvestigate: interactionRule(),
	quest.ObjectiveClearManage: interactionRule(),
	quest.ObjectiveDigRecover:  interactionRule(),
	quest.ObjectiveCustom: {
		events:        event.GameplayEvents,
		payloadKeys:   ActionKeys,
		conditionKeys: ActionConditionKeys,
		abilities:     true,
		contribution:  "default",
	},
}

func interactionRule() matchRule {
	return matchRule{
		events:        interactionEvents,
		payloadKeys:   ActionKeys,
		conditionKeys: ActionConditionKeys,
		abilities:     true,
		contribution:  quest.ContributionAbility,
	}
}

func (r matchRule) reactsTo(eventType string) bool {
	return contains(r.events, eventType)
}

// RouteProgressEvent offers one gameplay event to every non-completed
// objective of every active quest, main quest first. It returns the number
// of objectives that progressed.
func (m *Manager) RouteProgressEvent(ctx context.Context, eventType string, payload event.Payload) int {
	active := m.ActiveQuests()
	if len(active) == 0 {
		return 0
	}
	actor := m.actorFrom(payload)
	m.remember(eventType, actor, payload)

	total := 0
	for _, q := range active {
		updated := 0
		for _, o := range q.Objectives {
			if o.IsCompleted() {
				continue
			}
			if m.UpdateObjectiveForEvent(ctx, q, o, eventType, payload, actor) {
				updated++
			}
		}
		if updated == 0 {
			continue
		}
		total += updated
		m.refreshRecord(q)
		m.emit(ctx, event.QuestProgressUpdated, &QuestProgress{QuestID: q.ID, Progress: q.Progress()})
		m.CheckQuestCompletion(ctx, q)
	}
	if total > 0 {
		m.SaveToStorage(ctx)
	}
	return total
}

func (m *Manager) actorFrom(p event.Payload) string {
	if id := p.String(ActorKeys...); id != "" {
		return id
	}
	return m.mainCharacter
}

func (m *Manager) remember(eventType, actor string, p event.Payload) {
	m.recentEvents = append(m.recentEvents, RecentEvent{Type: eventType, ActorID: actor, Payload: p, At: time.Now()})
	if over := len(m.recentEvents) - m.opts.RecentEventsCap; over > 0 {
		m.recentEvents = append([]RecentEvent(nil), m.recentEvents[over:]...)
	}
}

// UpdateObjectiveForEvent advances o when the event satisfies it and reports
// whether it progressed.
func (m *Manager) UpdateObjectiveForEvent(ctx context.Context, q *quest.Quest, o *quest.Objective, eventType string, p event.Payload, actor string) bool {
	if o.IsCompleted() {
		return false
	}
	if o.AssignedCharacter != "" && o.AssignedCharacter != actor {
		return false
	}

	var matched bool
	var contribution string
	if o.Type == quest.ObjectiveDeliver {
		matched = eventType == event.DeliverItem && MatchDelivery(o.Conditions, eventType, p)
		contribution = quest.ContributionDeliver
	} else {
		rule, ok := rules[o.Type]
		if !ok {
			rule = rules[quest.ObjectiveCustom]
		}
		matched = rule.reactsTo(eventType) && rule.match(o.Conditions, eventType, p)
		contribution = rule.contribution
	}
	if !matched {
		return false
	}

	step := 1
	if o.Type == quest.ObjectiveCollect {
		if n, ok := p.Int(QuantityKeys...); ok && n > 0 {
			step = n
		}
	}
	next := o.RequiredCount
	if step < o.RequiredCount-o.CurrentCount {
		next = o.CurrentCount + step
	}
	o.Activate()
	completed := o.UpdateProgress(next)

	q.RecordContribution(ctx, actor, contribution)
	if completed {
		q.CreditObjective(ctx, actor, o)
	}
	m.emit(ctx, event.ObjectiveProgressUpdated, &ObjectiveProgress{
		QuestID:       q.ID,
		ObjectiveID:   o.ID,
		Objective:     o,
		CurrentCount:  o.CurrentCount,
		RequiredCount: o.RequiredCount,
		Completed:     o.IsCompleted(),
		ActorID:       actor,
		EventType:     eventType,
	})
	return true
}

// match reports whether any condition accepts the event. No conditions
// accepts every event the rule reacts to.
func (r matchRule) match(conds []quest.Condition, eventType string, p event.Payload) bool {
	if len(conds) == 0 {
		return true
	}
	ids := candidates(p, r.payloadKeys)
	var abilities []string
	if r.abilities {
		abilities = p.Strings(AbilityKeys...)
	}
	for _, c := range conds {
		if !eventAllowed(c, eventType) {
			continue
		}
		if r.abilities {
			if ab, ok := firstValue(c, AbilityConditionKeys); ok {
				if contains(abilities, ab) {
					return true
				}
				if !hasAny(c, r.conditionKeys) {
					continue
				}
			}
		}
		if MatchIdentity(c, r.conditionKeys, ids) {
			return true
		}
	}
	return false
}

// MatchDelivery requires the item and the recipient to match the same
// condition. A condition without item or recipient keys leaves that side open.
func MatchDelivery(conds []quest.Condition, eventType string, p event.Payload) bool {
	items := candidates(p, ItemKeys)
	targets := candidates(p, deliverTargetPayloads)
	if len(conds) == 0 {
		return true
	}
	for _, c := range conds {
		if !eventAllowed(c, eventType) {
			continue
		}
		if MatchIdentity(c, ItemConditionKeys, items) && MatchIdentity(c, TargetConditionKeys, targets) {
			return true
		}
	}
	return false
}

// MatchIdentity reports whether any of the condition's keys holds one of the
// candidate ids. A condition with none of the keys matches anything.
func MatchIdentity(c quest.Condition, keys []string, ids []string) bool {
	present := false
	for _, k := range keys {
		v, ok := c[k]
		if !ok {
			continue
		}
		present = true
		if contains(ids, v) {
			return true
		}
	}
	return !present
}

func eventAllowed(c quest.Condition, eventType string) bool {
	ev, ok := c[EventConditionKey]
	return !ok || ev == eventType
}

// candidates collects every non-empty value found under keys, in key order.
func candidates(p event.Payload, keys []string) []string {
	var out []string
	for _, k := range keys {
		v, ok := p.Lookup(k)
		if !ok {
			continue
		}
		if s := event.ToString(v); s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func firstValue(c quest.Condition, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := c[k]; ok {
			return v, true
		}
	}
	return "", false
}

func hasAny(c quest.Condition, keys []string) bool {
	_, ok := firstValue(c, keys)
	return ok
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
