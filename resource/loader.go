// Package resource is the read-only content store: quest templates, NPCs,
// companions, locations and dialogues loaded from declarative data files.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Collection file base names under the data directory. Each may be stored as
// .json, .yaml or .yml.
const (
	FileQuestTemplates = "quest_templates"
	FileNPCs           = "npcs"
	FileCompanions     = "companions"
	FileLocations      = "locations"
	FileDialogues      = "dialogues"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Store holds loaded content keyed by id. Lookups return nil on a miss.
type Store struct {
	DataPath string

	mu         sync.RWMutex
	templates  map[string]*QuestTemplate
	npcs       map[string]*NPC
	companions map[string]*Companion
	locations  map[string]*Location
	dialogues  map[string]*Dialogue
}

// NewStore creates an empty Store reading from dataPath on Load.
func NewStore(dataPath string) *Store {
	return &Store{
		DataPath:   dataPath,
		templates:  make(map[string]*QuestTemplate),
		npcs:       make(map[string]*NPC),
		companions: make(map[string]*Companion),
		locations:  make(map[string]*Location),
		dialogues:  make(map[string]*Dialogue),
	}
}

// Load reads every collection file. Missing files leave the collection empty.
func (s *Store) Load() error {
	var templates []*QuestTemplate
	var npcs []*NPC
	var companions []*Companion
	var locations []*Location
	var dialogues []*Dialogue

	loaders := []func() error{
		func() error { return loadList(s.DataPath, FileQuestTemplates, &templates) },
		func() error { return loadList(s.DataPath, FileNPCs, &npcs) },
		func() error { return loadList(s.DataPath, FileCompanions, &companions) },
		func() error { return loadList(s.DataPath, FileLocations, &locations) },
		func() error { return loadList(s.DataPath, FileDialogues, &dialogues) },
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return err
		}
	}

	for _, t := range templates {
		if t.ID == "" {
			return fmt.Errorf("resource: quest template %q has no templateId", t.Title)
		}
		s.AddQuestTemplate(t)
	}
	for _, n := range npcs {
		s.AddNPC(n)
	}
	for _, c := range companions {
		s.AddCompanion(c)
	}
	for _, l := range locations {
		s.AddLocation(l)
	}
	for _, d := range dialogues {
		s.AddDialogue(d)
	}
	return nil
}

// loadList decodes the first existing <dir>/<name>{.json,.yaml,.yml} into out.
func loadList[T any](dir, name string, out *[]*T) error {
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("resource: read %s: %w", path, err)
		}
		if ext == ".json" {
			err = json.Unmarshal(data, out)
		} else {
			err = yaml.Unmarshal(data, out)
		}
		if err != nil {
			return fmt.Errorf("resource: parse %s: %w", path, err)
		}
		return nil
	}
	return nil
}

// ---- Seeding ----

func (s *Store) AddQuestTemplate(t *QuestTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

func (s *Store) AddNPC(n *NPC) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.npcs[n.ID] = n
}

func (s *Store) AddCompanion(c *Companion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companions[c.ID] = c
}

func (s *Store) AddLocation(l *Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.ID] = l
}

func (s *Store) AddDialogue(d *Dialogue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogues[d.ID] = d
}

// ---- Queries ----

// QuestTemplate returns the template with the given id, or nil.
func (s *Store) QuestTemplate(id string) *QuestTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates[id]
}

// QuestTemplates returns every template ordered by id.
func (s *Store) QuestTemplates() []*QuestTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*QuestTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) NPC(id string) *NPC {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.npcs[id]
}

func (s *Store) Companion(id string) *Companion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.companions[id]
}

// Companions returns every companion ordered by id.
func (s *Store) Companions() []*Companion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Companion, 0, len(s.companions))
	for _, c := range s.companions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Location(id string) *Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations[id]
}

// StartingLocations returns the ids of locations unlocked in a new game.
func (s *Store) StartingLocations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, l := range s.locations {
		if l.StartUnlock {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) Dialogue(id string) *Dialogue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialogues[id]
}
