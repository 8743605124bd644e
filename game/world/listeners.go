package world

import (
	"context"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/quest"
	"go.uber.org/zap"
)

// Payload aliases read by the reactive listeners.
var (
	itemKeys     = []string{"itemId", "item_id", "item.id", "itemType", "item_type"}
	quantityKeys = []string{"quantity", "count", "amount", "qty"}
)

func (m *Manager) registerListeners() {
	if m.bus == nil {
		return
	}
	m.bus.Subscribe(event.ItemCollected, 10, Owner, m.onItemCollected)
	m.bus.Subscribe(event.DeliverItem, 10, Owner, m.onItemDelivered)
	m.bus.Subscribe(event.QuestAccepted, 10, Owner, m.onQuestAccepted)
	m.bus.Subscribe(event.QuestCompleted, 10, Owner, m.onQuestCompleted)
}

func quantity(p event.Payload) int {
	if n, ok := p.Int(quantityKeys...); ok && n > 0 {
		return n
	}
	return 1
}

func (m *Manager) onItemCollected(ctx context.Context, ev event.Event) {
	p := event.AsPayload(ev.Data)
	if id := p.String(itemKeys...); id != "" {
		m.AddItem(ctx, id, quantity(p))
	}
}

func (m *Manager) onItemDelivered(ctx context.Context, ev event.Event) {
	p := event.AsPayload(ev.Data)
	id := p.String(itemKeys...)
	if id == "" {
		return
	}
	if !m.RemoveItem(ctx, id, quantity(p)) {
		m.logger.Debug("delivered item not in inventory", zap.String("item_id", id))
	}
}

// questInfo extracts what the listeners need from a lifecycle payload, which
// is either a *quest.QuestEvent or a loose map from an external client.
type questInfo struct {
	templateID  string
	destination string
	unlocks     []string
	items       []string
}

func questInfoFrom(data interface{}) questInfo {
	if qe, ok := data.(*quest.QuestEvent); ok && qe.Quest != nil {
		info := questInfo{
			templateID:  qe.Quest.TemplateID,
			destination: qe.Quest.DestinationLocationID,
			unlocks:     qe.Quest.UnlockLocations,
		}
		if qe.Rewards != nil {
			info.items = qe.Rewards.Items
		}
		return info
	}
	p := event.AsPayload(data)
	return questInfo{
		templateID:  p.String("templateId", "template_id", "quest.templateId"),
		destination: p.String("destinationLocationId", "destination", "quest.destinationLocationId"),
		unlocks:     p.Strings("unlockLocations", "rewards.unlockLocations", "quest.unlockLocations"),
		items:       p.Strings("items", "rewards.items"),
	}
}

func (m *Manager) onQuestAccepted(ctx context.Context, ev event.Event) {
	if dest := questInfoFrom(ev.Data).destination; dest != "" {
		m.UnlockLocations(ctx, dest)
	}
}

func (m *Manager) onQuestCompleted(ctx context.Context, ev event.Event) {
	info := questInfoFrom(ev.Data)
	if info.templateID != "" {
		m.MarkTemplateCompleted(ctx, info.templateID)
	}
	if len(info.unlocks) > 0 {
		m.UnlockLocations(ctx, info.unlocks...)
	}
	for _, item := range info.items {
		m.AddItem(ctx, item, 1)
	}
}
