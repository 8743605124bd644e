package mission

import (
	"context"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/quest"
)

func (m *Manager) registerListeners() {
	if m.bus == nil {
		return
	}
	for _, name := range event.GameplayEvents {
		m.bus.Subscribe(name, 0, Owner, m.onGameplay)
	}
	m.bus.Subscribe(event.QuestAccepted, 0, Owner, m.onQuestAccepted)
	m.bus.Subscribe(event.QuestCompleted, 0, Owner, m.onQuestCompleted)
	m.bus.Subscribe(event.QuestAbandoned, 0, Owner, m.onQuestAbandoned)
	m.bus.Subscribe(event.MissionFailed, 0, Owner, m.onMissionFailed)
}

func (m *Manager) onGameplay(ctx context.Context, ev event.Event) {
	p := event.AsPayload(ev.Data)
	switch ev.Name {
	case event.CharacterSwitched:
		if id := p.String(SwitchKeys...); id != "" {
			m.SetMainCharacter(id)
		}
	case event.PartnerSummoned, event.CompanionCalled, event.CompanionAbilityUsed:
		if id := p.String(PartnerKeys...); id != "" {
			for _, q := range m.ActiveQuests() {
				q.UsePartner(id)
			}
		}
	}
	m.RouteProgressEvent(ctx, ev.Name, p)
}

// questFrom resolves a lifecycle event to a registered quest.
func (m *Manager) questFrom(data interface{}) *quest.Quest {
	var id string
	switch d := data.(type) {
	case *quest.QuestEvent:
		if d.Quest != nil {
			if _, ok := m.quests[d.Quest.ID]; !ok && d.Quest.Status == quest.StatusActive {
				return d.Quest
			}
		}
		id = d.QuestID
	case *quest.FailureEvent:
		id = d.MissionID
	default:
		id = event.AsPayload(data).String("questId", "quest_id", "quest.id")
	}
	if id == "" || id == m.driving {
		return nil
	}
	return m.quests[id]
}

func (m *Manager) onQuestAccepted(ctx context.Context, ev event.Event) {
	if q := m.questFrom(ev.Data); q != nil {
		m.SyncAccepted(ctx, q)
	}
}

func (m *Manager) onQuestCompleted(ctx context.Context, ev event.Event) {
	if q := m.questFrom(ev.Data); q != nil && q.Status == quest.StatusCompleted {
		m.MarkCompleted(ctx, q.ID)
	}
}

func (m *Manager) onQuestAbandoned(ctx context.Context, ev event.Event) {
	if q := m.questFrom(ev.Data); q != nil && q.Status == quest.StatusAbandoned {
		m.MarkAbandoned(ctx, q.ID, "abandoned")
	}
}

func (m *Manager) onMissionFailed(ctx context.Context, ev event.Event) {
	if q := m.questFrom(ev.Data); q != nil && q.Status == quest.StatusFailed {
		m.MarkFailed(ctx, q.ID, q.FailReason)
	}
}
