package world

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/storage"
	"go.uber.org/zap"
)

// Owner is the bus subscription owner for the manager's listeners.
const Owner = "world_state"

// MaxItemCount caps how many of one item the inventory holds.
const MaxItemCount = 999999

// Change kinds reported in WORLD_STATE_CHANGED.
const (
	ChangeLocations   = "locations_unlocked"
	ChangeFlagSet     = "flag_set"
	ChangeFlagCleared = "flag_cleared"
	ChangeTemplate    = "template_completed"
	ChangeItemAdded   = "item_added"
	ChangeItemRemoved = "item_removed"
	ChangeCompanion   = "companion_unlocked"
	ChangeSkill       = "skill_unlocked"
	ChangePlayer      = "player_state"
	ChangeReset       = "reset"
)

// Change is the WORLD_STATE_CHANGED payload.
type Change struct {
	Kind  string   `json:"kind"`
	IDs   []string `json:"ids,omitempty"`
	Count int      `json:"count,omitempty"`
	State State    `json:"state"`
}

// Options configures a Manager.
type Options struct {
	StartingLocations []string
	StorageKey        string
}

// Manager owns the world state. Every mutator that changes something saves
// and then emits WORLD_STATE_CHANGED; a mutator with nothing to change does
// neither. It is not safe for concurrent use.
type Manager struct {
	bus         *event.Bus
	store       storage.BlobStore
	logger      *zap.Logger
	opts        Options
	state       State
	initialized bool
}

// NewManager creates a Manager holding a fresh state.
func NewManager(bus *event.Bus, store storage.BlobStore, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StorageKey == "" {
		opts.StorageKey = storage.KeyWorldState
	}
	m := &Manager{bus: bus, store: store, logger: logger, opts: opts}
	m.state = m.fresh()
	return m
}

func (m *Manager) fresh() State {
	s := newState()
	s.UnlockedLocations = append(s.UnlockedLocations, m.opts.StartingLocations...)
	return s
}

// Initialize loads the persisted state and subscribes the reactive
// listeners. Later calls do nothing.
func (m *Manager) Initialize(ctx context.Context) {
	if m.initialized {
		return
	}
	m.Load(ctx)
	m.registerListeners()
	m.initialized = true
}

// Load replaces the state with the persisted one, migrating older versions
// and saving the upgraded document. Read failures keep the current state.
func (m *Manager) Load(ctx context.Context) bool {
	if m.store == nil {
		return false
	}
	data, err := m.store.Load(ctx, m.opts.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		m.logger.Warn("world state: load", zap.Error(err))
		return false
	}
	s, migrated, err := Decode(data)
	if err != nil {
		m.logger.Warn("world state: decode", zap.Error(err))
		return false
	}
	m.state = s
	if migrated {
		m.logger.Info("world state migrated", zap.Int("version", StateVersion))
		m.save(ctx)
	}
	return true
}

func (m *Manager) save(ctx context.Context) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(m.state)
	if err != nil {
		m.logger.Warn("world state: encode", zap.Error(err))
		return
	}
	if err := m.store.Save(ctx, m.opts.StorageKey, data); err != nil {
		m.logger.Warn("world state: save", zap.Error(err))
	}
}

// commit persists then announces a change.
func (m *Manager) commit(ctx context.Context, kind string, ids []string, count int) {
	m.save(ctx)
	m.logger.Debug("world state changed", zap.String("kind", kind), zap.Strings("ids", ids))
	if m.bus != nil {
		m.bus.Emit(ctx, event.WorldStateChanged, &Change{Kind: kind, IDs: ids, Count: count, State: m.state.clone()})
	}
}

// ---- queries ----

// Snapshot returns a copy of the state.
func (m *Manager) Snapshot() State { return m.state.clone() }

func (m *Manager) HasWorldFlag(flag string) bool {
	return contains(m.state.WorldFlags, flag)
}

func (m *Manager) HasCompletedTemplate(templateID string) bool {
	return contains(m.state.CompletedQuestTemplates, templateID)
}

func (m *Manager) IsLocationUnlocked(id string) bool {
	return contains(m.state.UnlockedLocations, id)
}

func (m *Manager) IsCompanionUnlocked(id string) bool {
	return contains(m.state.UnlockedCompanions, id)
}

func (m *Manager) IsSkillUnlocked(id string) bool {
	return contains(m.state.UnlockedSkills, id)
}

// ItemCount returns how many of an item are held.
func (m *Manager) ItemCount(itemID string) int { return m.state.Inventory[itemID] }

// ---- mutators ----

// appendNew appends the ids not yet in list and returns them.
func appendNew(list *[]string, ids []string) []string {
	var added []string
	for _, id := range ids {
		if id == "" || contains(*list, id) {
			continue
		}
		*list = append(*list, id)
		added = append(added, id)
	}
	return added
}

// UnlockLocations unlocks every id not yet unlocked.
func (m *Manager) UnlockLocations(ctx context.Context, ids ...string) bool {
	added := appendNew(&m.state.UnlockedLocations, ids)
	if len(added) == 0 {
		return false
	}
	m.commit(ctx, ChangeLocations, added, 0)
	return true
}

func (m *Manager) SetWorldFlag(ctx context.Context, flag string) bool {
	if len(appendNew(&m.state.WorldFlags, []string{flag})) == 0 {
		return false
	}
	m.commit(ctx, ChangeFlagSet, []string{flag}, 0)
	return true
}

func (m *Manager) ClearWorldFlag(ctx context.Context, flag string) bool {
	for i, f := range m.state.WorldFlags {
		if f == flag {
			m.state.WorldFlags = append(m.state.WorldFlags[:i], m.state.WorldFlags[i+1:]...)
			m.commit(ctx, ChangeFlagCleared, []string{flag}, 0)
			return true
		}
	}
	return false
}

func (m *Manager) MarkTemplateCompleted(ctx context.Context, templateID string) bool {
	if len(appendNew(&m.state.CompletedQuestTemplates, []string{templateID})) == 0 {
		return false
	}
	m.commit(ctx, ChangeTemplate, []string{templateID}, 0)
	return true
}

func (m *Manager) UnlockCompanion(ctx context.Context, id string) bool {
	if len(appendNew(&m.state.UnlockedCompanions, []string{id})) == 0 {
		return false
	}
	m.commit(ctx, ChangeCompanion, []string{id}, 0)
	return true
}

func (m *Manager) UnlockSkill(ctx context.Context, id string) bool {
	if len(appendNew(&m.state.UnlockedSkills, []string{id})) == 0 {
		return false
	}
	m.commit(ctx, ChangeSkill, []string{id}, 0)
	return true
}

// AddItem adds qty (> 0) of an item. It fails without change when the
// count would pass MaxItemCount.
func (m *Manager) AddItem(ctx context.Context, itemID string, qty int) bool {
	if itemID == "" || qty <= 0 || qty > MaxItemCount-m.state.Inventory[itemID] {
		return false
	}
	m.state.Inventory[itemID] += qty
	m.commit(ctx, ChangeItemAdded, []string{itemID}, qty)
	return true
}

// RemoveItem takes qty of an item. It fails without change when fewer are
// held. Counts that reach zero are removed from the inventory.
func (m *Manager) RemoveItem(ctx context.Context, itemID string, qty int) bool {
	if qty <= 0 {
		return false
	}
	held := m.state.Inventory[itemID]
	if held < qty {
		return false
	}
	if held == qty {
		delete(m.state.Inventory, itemID)
	} else {
		m.state.Inventory[itemID] = held - qty
	}
	m.commit(ctx, ChangeItemRemoved, []string{itemID}, qty)
	return true
}

// SetLastPlayerState records the player position.
func (m *Manager) SetLastPlayerState(ctx context.Context, ps PlayerState) bool {
	if cur := m.state.LastPlayerState; cur != nil &&
		cur.Character == ps.Character && cur.LocationID == ps.LocationID && cur.X == ps.X && cur.Y == ps.Y {
		return false
	}
	if ps.UpdatedAt.IsZero() {
		ps.UpdatedAt = time.Now()
	}
	m.state.LastPlayerState = &ps
	m.commit(ctx, ChangePlayer, []string{ps.LocationID}, 0)
	return true
}

// Reset restores the fresh state.
func (m *Manager) Reset(ctx context.Context) {
	m.state = m.fresh()
	m.commit(ctx, ChangeReset, nil, 0)
}
