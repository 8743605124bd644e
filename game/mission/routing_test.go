package mission

import (
	"testing"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/stretchr/testify/assert"
)

func TestMatchIdentity(t *testing.T) {
	c := quest.Condition{"item_type": "shell", "item_id": "shell_7"}
	assert.True(t, MatchIdentity(c, ItemConditionKeys, []string{"shell_7"}))
	assert.True(t, MatchIdentity(c, ItemConditionKeys, []string{"shell"}))
	assert.False(t, MatchIdentity(c, ItemConditionKeys, []string{"rock"}))
	assert.True(t, MatchIdentity(quest.Condition{"other": "x"}, ItemConditionKeys, nil), "no relevant keys is open")
}

func TestMatchDelivery(t *testing.T) {
	conds := []quest.Condition{{"item_id": "package_1", "npc_id": "mayor"}}
	assert.True(t, MatchDelivery(conds, event.DeliverItem, event.Payload{"itemId": "package_1", "npcId": "mayor"}))
	assert.True(t, MatchDelivery(conds, event.DeliverItem, event.Payload{"item": map[string]interface{}{"id": "package_1"}, "target": map[string]interface{}{"id": "mayor"}}))
	assert.False(t, MatchDelivery(conds, event.DeliverItem, event.Payload{"itemId": "package_1", "npcId": "deputy"}))
	assert.False(t, MatchDelivery(conds, event.DeliverItem, event.Payload{"itemId": "letter", "npcId": "mayor"}))

	building := []quest.Condition{{"item_id": "bread", "building_id": "bakery"}}
	assert.True(t, MatchDelivery(building, event.DeliverItem, event.Payload{"itemId": "bread", "buildingId": "bakery"}))

	anyRecipient := []quest.Condition{{"item_id": "bread"}}
	assert.True(t, MatchDelivery(anyRecipient, event.DeliverItem, event.Payload{"itemId": "bread", "npcId": "anyone"}))
}

func TestRule_AbilityPath(t *testing.T) {
	r := rules[quest.ObjectiveAssist]
	needFly := []quest.Condition{{"ability": "fly"}}
	assert.True(t, r.match(needFly, event.CompanionAbilityUsed, event.Payload{"companionId": "jerome", "abilities": []interface{}{"fly", "lift"}}))
	assert.False(t, r.match(needFly, event.CompanionAbilityUsed, event.Payload{"companionId": "donnie", "abilities": []string{"build"}}))

	byPartner := []quest.Condition{{"partner_id": "donnie"}}
	assert.True(t, r.match(byPartner, event.PartnerSummoned, event.Payload{"partnerId": "donnie"}))
	assert.False(t, r.match(byPartner, event.PartnerSummoned, event.Payload{"partnerId": "paul"}))

	either := []quest.Condition{{"ability": "dig", "companion_id": "donnie"}}
	assert.True(t, r.match(either, event.CompanionCalled, event.Payload{"companionId": "donnie"}))
	assert.True(t, r.match(either, event.CompanionCalled, event.Payload{"companionId": "todd", "ability": "dig"}))
}

func TestRule_EventConstraint(t *testing.T) {
	r := rules[quest.ObjectiveCustom]
	conds := []quest.Condition{{"event": event.PortalEntered}}
	assert.True(t, r.match(conds, event.PortalEntered, event.Payload{}))
	assert.False(t, r.match(conds, event.CustomAction, event.Payload{}))
}

func TestRule_EventRelevance(t *testing.T) {
	assert.True(t, rules[quest.ObjectiveTalk].reactsTo(event.NPCInteraction))
	assert.False(t, rules[quest.ObjectiveTalk].reactsTo(event.ItemCollected))
	assert.True(t, rules[quest.ObjectiveCollect].reactsTo(event.ItemCollected))
	assert.False(t, rules[quest.ObjectiveCollect].reactsTo(event.DeliverItem))
	assert.True(t, rules[quest.ObjectiveGoToLocation].reactsTo(event.BuildingEntered))
}
