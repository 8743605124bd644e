// Package companion manages the unlockable allies the player can call into
// the world and the abilities they lend to quest objectives.
package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/resource"
	"github.com/kasuganosora/skyquest/storage"
	"go.uber.org/zap"
)

// Owner is the bus subscription owner for the manager's listeners.
const Owner = "companion_manager"

// StateVersion is the persisted blob version.
const StateVersion = 1

var (
	ErrCompanionNotFound = errors.New("companion: not found")
	ErrLocked            = errors.New("companion: locked")
)

// Content looks up companion definitions.
type Content interface {
	Companion(id string) *resource.Companion
	Companions() []*resource.Companion
}

// World is the unlock ledger companions are gated on. The world state
// manager implements it.
type World interface {
	HasWorldFlag(flag string) bool
	HasCompletedTemplate(templateID string) bool
	IsCompanionUnlocked(id string) bool
	UnlockCompanion(ctx context.Context, id string) bool
}

// State is the persisted companion blob. Unlocks live in the world state.
type State struct {
	Version  int            `json:"version"`
	Active   string         `json:"active,omitempty"`
	Selected string         `json:"selected,omitempty"`
	Calls    map[string]int `json:"calls"`
}

// View is one companion as presented to the UI.
type View struct {
	*resource.Companion
	Unlocked bool `json:"unlocked"`
	Active   bool `json:"active"`
	Selected bool `json:"selected"`
	Calls    int  `json:"calls"`
}

// Manager tracks which companion is out and which one the player prefers.
type Manager struct {
	bus         *event.Bus
	store       storage.BlobStore
	content     Content
	world       World
	logger      *zap.Logger
	key         string
	state       State
	initialized bool
}

// NewManager creates a Manager. store may be nil.
func NewManager(bus *event.Bus, store storage.BlobStore, content Content, world World, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		bus:     bus,
		store:   store,
		content: content,
		world:   world,
		logger:  logger,
		key:     storage.KeyCompanions,
		state:   State{Version: StateVersion, Calls: map[string]int{}},
	}
}

// Initialize loads the persisted blob, unlocks starter companions and those
// whose gates are already met, and subscribes to world changes.
func (m *Manager) Initialize(ctx context.Context) {
	if m.initialized {
		return
	}
	m.load(ctx)
	for _, c := range m.content.Companions() {
		if c.Starter {
			m.world.UnlockCompanion(ctx, c.ID)
		}
	}
	m.unlockEligible(ctx)
	if m.bus != nil {
		m.bus.Subscribe(event.WorldStateChanged, 20, Owner, func(ctx context.Context, _ event.Event) {
			m.unlockEligible(ctx)
		})
	}
	m.initialized = true
}

func (m *Manager) load(ctx context.Context) {
	if m.store == nil {
		return
	}
	data, err := m.store.Load(ctx, m.key)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		m.logger.Warn("companions: load", zap.Error(err))
		return
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Warn("companions: decode", zap.Error(err))
		return
	}
	if s.Calls == nil {
		s.Calls = map[string]int{}
	}
	s.Version = StateVersion
	m.state = s
}

func (m *Manager) save(ctx context.Context) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(m.state)
	if err != nil {
		m.logger.Warn("companions: encode", zap.Error(err))
		return
	}
	if err := m.store.Save(ctx, m.key, data); err != nil {
		m.logger.Warn("companions: save", zap.Error(err))
	}
}

func (m *Manager) lookup(id string) (*resource.Companion, error) {
	c := m.content.Companion(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCompanionNotFound, id)
	}
	return c, nil
}

// IsUnlockable reports whether every unlock gate of a still locked
// companion is met. Companions without gates only unlock as starters or
// through Unlock.
func (m *Manager) IsUnlockable(id string) bool {
	c := m.content.Companion(id)
	if c == nil || m.world.IsCompanionUnlocked(id) {
		return false
	}
	if len(c.UnlockFlags) == 0 && len(c.UnlockQuests) == 0 {
		return false
	}
	for _, f := range c.UnlockFlags {
		if !m.world.HasWorldFlag(f) {
			return false
		}
	}
	for _, q := range c.UnlockQuests {
		if !m.world.HasCompletedTemplate(q) {
			return false
		}
	}
	return true
}

func (m *Manager) unlockEligible(ctx context.Context) {
	for _, c := range m.content.Companions() {
		if m.IsUnlockable(c.ID) {
			m.logger.Info("companion unlocked", zap.String("companion_id", c.ID))
			m.world.UnlockCompanion(ctx, c.ID)
		}
	}
}

// Unlock unlocks a companion regardless of its gates.
func (m *Manager) Unlock(ctx context.Context, id string) (bool, error) {
	if _, err := m.lookup(id); err != nil {
		return false, err
	}
	return m.world.UnlockCompanion(ctx, id), nil
}

// Call brings an unlocked companion out for character and emits
// COMPANION_CALLED. Calling a different companion replaces the active one.
func (m *Manager) Call(ctx context.Context, id, character string) error {
	c, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !m.world.IsCompanionUnlocked(id) {
		return fmt.Errorf("%w: %s", ErrLocked, id)
	}
	m.state.Active = id
	m.state.Calls[id]++
	m.save(ctx)
	if m.bus != nil {
		m.bus.Emit(ctx, event.CompanionCalled, event.Payload{
			"companionId": id,
			"abilities":   append([]string(nil), c.Abilities...),
			"character":   character,
		})
	}
	return nil
}

// UseAbility has the active companion perform ability for character and
// emits COMPANION_ABILITY_USED. It returns false when no active companion
// has the ability.
func (m *Manager) UseAbility(ctx context.Context, ability, target, character string) bool {
	c := m.content.Companion(m.state.Active)
	if c == nil || !containsString(c.Abilities, ability) {
		return false
	}
	if m.bus != nil {
		p := event.Payload{
			"companionId": c.ID,
			"ability":     ability,
			"abilities":   []string{ability},
			"character":   character,
		}
		if target != "" {
			p["targetId"] = target
		}
		m.bus.Emit(ctx, event.CompanionAbilityUsed, p)
	}
	return true
}

// Dismiss sends the active companion away.
func (m *Manager) Dismiss(ctx context.Context) bool {
	if m.state.Active == "" {
		return false
	}
	m.state.Active = ""
	m.save(ctx)
	return true
}

// Select marks an unlocked companion as the player's preferred one.
func (m *Manager) Select(ctx context.Context, id string) error {
	if _, err := m.lookup(id); err != nil {
		return err
	}
	if !m.world.IsCompanionUnlocked(id) {
		return fmt.Errorf("%w: %s", ErrLocked, id)
	}
	if m.state.Selected != id {
		m.state.Selected = id
		m.save(ctx)
	}
	return nil
}

// Reset clears the active and selected companion and emits COMPANIONS_RESET.
func (m *Manager) Reset(ctx context.Context) {
	m.state = State{Version: StateVersion, Calls: map[string]int{}}
	m.save(ctx)
	if m.bus != nil {
		m.bus.Emit(ctx, event.CompanionsReset, event.Payload{})
	}
}

func (m *Manager) Active() string   { return m.state.Active }
func (m *Manager) Selected() string { return m.state.Selected }

// AvailableAbilities lists the abilities of every unlocked companion.
func (m *Manager) AvailableAbilities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range m.content.Companions() {
		if !m.world.IsCompanionUnlocked(c.ID) {
			continue
		}
		for _, a := range c.Abilities {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sort.Strings(out)
	return out
}

// HasAbility reports whether any unlocked companion has ability.
func (m *Manager) HasAbility(ability string) bool {
	return containsString(m.AvailableAbilities(), ability)
}

// Companions lists every companion with its runtime status.
func (m *Manager) Companions() []View {
	list := m.content.Companions()
	out := make([]View, 0, len(list))
	for _, c := range list {
		out = append(out, View{
			Companion: c,
			Unlocked:  m.world.IsCompanionUnlocked(c.ID),
			Active:    m.state.Active == c.ID,
			Selected:  m.state.Selected == c.ID,
			Calls:     m.state.Calls[c.ID],
		})
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
