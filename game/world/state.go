// Package world keeps the persistent world state: unlocks, flags, completed
// quest templates and the inventory.
package world

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// StateVersion is the current world state schema version.
const StateVersion = 2

// PlayerState is the last known player position.
type PlayerState struct {
	Character  string    `json:"character,omitempty"`
	LocationID string    `json:"locationId,omitempty"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// State is the persisted world state document.
type State struct {
	Version                 int            `json:"version"`
	UnlockedLocations       []string       `json:"unlockedLocations"`
	WorldFlags              []string       `json:"worldFlags"`
	CompletedQuestTemplates []string       `json:"completedQuestTemplates"`
	Inventory               map[string]int `json:"inventory"`
	UnlockedCompanions      []string       `json:"unlockedCompanions"`
	UnlockedSkills          []string       `json:"unlockedSkills"`
	LastPlayerState         *PlayerState   `json:"lastPlayerState"`
}

func newState() State {
	return State{
		Version:                 StateVersion,
		UnlockedLocations:       []string{},
		WorldFlags:              []string{},
		CompletedQuestTemplates: []string{},
		Inventory:               map[string]int{},
		UnlockedCompanions:      []string{},
		UnlockedSkills:          []string{},
	}
}

func (s State) clone() State {
	c := s
	c.UnlockedLocations = append([]string{}, s.UnlockedLocations...)
	c.WorldFlags = append([]string{}, s.WorldFlags...)
	c.CompletedQuestTemplates = append([]string{}, s.CompletedQuestTemplates...)
	c.UnlockedCompanions = append([]string{}, s.UnlockedCompanions...)
	c.UnlockedSkills = append([]string{}, s.UnlockedSkills...)
	c.Inventory = make(map[string]int, len(s.Inventory))
	for k, v := range s.Inventory {
		c.Inventory[k] = v
	}
	if s.LastPlayerState != nil {
		ps := *s.LastPlayerState
		c.LastPlayerState = &ps
	}
	return c
}

// stateV1 is the first schema: no inventory, companion or skill unlocks and
// no player position. Flags were stored either as a list or as a map.
type stateV1 struct {
	Version                 int             `json:"version"`
	UnlockedLocations       []string        `json:"unlockedLocations"`
	WorldFlags              json.RawMessage `json:"worldFlags"`
	CompletedQuestTemplates []string        `json:"completedQuestTemplates"`
}

// Decode parses a persisted document of any known version into the current
// schema. migrated reports whether an upgrade happened.
func Decode(data []byte) (s State, migrated bool, err error) {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return State{}, false, fmt.Errorf("world: decode state: %w", err)
	}
	switch {
	case head.Version <= 1:
		var old stateV1
		if err := json.Unmarshal(data, &old); err != nil {
			return State{}, false, fmt.Errorf("world: decode v1 state: %w", err)
		}
		s, err = migrateV1(old)
		return s, true, err
	case head.Version == StateVersion:
		s = newState()
		if err := json.Unmarshal(data, &s); err != nil {
			return State{}, false, fmt.Errorf("world: decode state: %w", err)
		}
		normalize(&s)
		return s, false, nil
	default:
		return State{}, false, fmt.Errorf("world: unsupported state version %d", head.Version)
	}
}

func migrateV1(old stateV1) (State, error) {
	s := newState()
	s.UnlockedLocations = append(s.UnlockedLocations, old.UnlockedLocations...)
	s.CompletedQuestTemplates = append(s.CompletedQuestTemplates, old.CompletedQuestTemplates...)
	flags, err := decodeFlags(old.WorldFlags)
	if err != nil {
		return State{}, err
	}
	s.WorldFlags = flags
	normalize(&s)
	return s, nil
}

func decodeFlags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var set map[string]bool
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("world: decode v1 flags: %w", err)
	}
	out := make([]string, 0, len(set))
	for k, on := range set {
		if on {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// normalize fills nil collections and drops non-positive inventory counts.
func normalize(s *State) {
	s.Version = StateVersion
	if s.UnlockedLocations == nil {
		s.UnlockedLocations = []string{}
	}
	if s.WorldFlags == nil {
		s.WorldFlags = []string{}
	}
	if s.CompletedQuestTemplates == nil {
		s.CompletedQuestTemplates = []string{}
	}
	if s.UnlockedCompanions == nil {
		s.UnlockedCompanions = []string{}
	}
	if s.UnlockedSkills == nil {
		s.UnlockedSkills = []string{}
	}
	if s.Inventory == nil {
		s.Inventory = map[string]int{}
	}
	for k, v := range s.Inventory {
		if v <= 0 {
			delete(s.Inventory, k)
		}
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
