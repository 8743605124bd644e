package mission

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/kasuganosora/skyquest/storage"
	"go.uber.org/zap"
)

// SnapshotVersion is the current mission manager blob version.
const SnapshotVersion = 1

// Snapshot is the persisted mission manager state.
type Snapshot struct {
	Version       int                `json:"version"`
	MainCharacter string             `json:"mainCharacter,omitempty"`
	Quests        []quest.Record     `json:"quests"`
	Records       map[string]*Record `json:"records"`
	ActiveMain    string             `json:"activeMain,omitempty"`
	ActiveSubs    []string           `json:"activeSubs"`
	Offered       []string           `json:"offered"`
	Completed     []string           `json:"completed"`
	Abandoned     []string           `json:"abandoned"`
	Failed        []string           `json:"failed"`
	RecentEvents  []RecentEvent      `json:"recentEvents"`
	StateLog      []StateChange      `json:"stateLog"`
}

// Snapshot captures the full manager state.
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{
		Version:       SnapshotVersion,
		MainCharacter: m.mainCharacter,
		Records:       make(map[string]*Record, len(m.records)),
		ActiveMain:    m.activeMain,
		ActiveSubs:    m.activeSubs.list(),
		Offered:       m.offered.list(),
		Completed:     m.completed.list(),
		Abandoned:     m.abandoned.list(),
		Failed:        m.failed.list(),
		RecentEvents:  m.RecentEvents(),
		StateLog:      m.StateLog(),
	}
	for _, id := range m.order {
		s.Quests = append(s.Quests, m.quests[id].Serialize())
	}
	for _, r := range m.Records() {
		r := r
		s.Records[r.QuestID] = &r
	}
	return s
}

// SaveToStorage persists the manager. Failures are logged and ignored.
func (m *Manager) SaveToStorage(ctx context.Context) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		m.logger.Warn("mission manager: encode state", zap.Error(err))
		return
	}
	if err := m.store.Save(ctx, m.opts.StorageKey, data); err != nil {
		m.logger.Warn("mission manager: save state", zap.Error(err))
	}
}

// LoadFromStorage replaces in-memory state with the persisted blob. A
// missing or unreadable blob leaves the current state untouched.
func (m *Manager) LoadFromStorage(ctx context.Context) bool {
	if m.store == nil {
		return false
	}
	data, err := m.store.Load(ctx, m.opts.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		m.logger.Warn("mission manager: load state", zap.Error(err))
		return false
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Warn("mission manager: decode state", zap.Error(err))
		return false
	}
	m.restore(s)
	m.logger.Info("mission manager state loaded",
		zap.Int("quests", len(m.quests)),
		zap.String("active_main", m.activeMain),
		zap.Int("active_subs", len(m.activeSubs)))
	return true
}

// restore rebuilds quests from their records and takes the index sets
// verbatim from the snapshot, dropping ids of quests that are not present.
func (m *Manager) restore(s Snapshot) {
	m.clear()
	if s.MainCharacter != "" {
		m.mainCharacter = s.MainCharacter
	}
	for _, rec := range s.Quests {
		q := quest.Deserialize(rec)
		m.attach(q)
		if _, dup := m.quests[q.ID]; !dup {
			m.order = append(m.order, q.ID)
		}
		m.quests[q.ID] = q
	}
	for _, id := range m.order {
		if r, ok := s.Records[id]; ok && r != nil {
			c := *r
			m.records[id] = &c
		} else {
			m.refreshRecord(m.quests[id])
		}
	}
	known := func(ids []string) idSet {
		var out idSet
		for _, id := range ids {
			if _, ok := m.quests[id]; ok {
				out.add(id)
			}
		}
		return out
	}
	if _, ok := m.quests[s.ActiveMain]; ok {
		m.activeMain = s.ActiveMain
	}
	m.activeSubs = known(s.ActiveSubs)
	m.offered = known(s.Offered)
	m.completed = known(s.Completed)
	m.abandoned = known(s.Abandoned)
	m.failed = known(s.Failed)

	m.recentEvents = s.RecentEvents
	if over := len(m.recentEvents) - m.opts.RecentEventsCap; over > 0 {
		m.recentEvents = m.recentEvents[over:]
	}
	m.stateLog = s.StateLog
	if over := len(m.stateLog) - m.opts.StateLogCap; over > 0 {
		m.stateLog = m.stateLog[over:]
	}
}
