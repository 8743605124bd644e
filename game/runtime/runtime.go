// Package runtime assembles the event bus and the quest, world and
// companion managers into one handle whose calls are serialized.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/skyquest/game/companion"
	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/mission"
	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/kasuganosora/skyquest/game/world"
	"github.com/kasuganosora/skyquest/resource"
	"github.com/kasuganosora/skyquest/storage"
	"go.uber.org/zap"
)

// Options configures New.
type Options struct {
	MainCharacter   string
	RecentEventsCap int
	StateLogCap     int
	Tuning          quest.RewardTuning
}

// Runtime owns every game service. The services are single threaded; Do
// serializes callers from HTTP handlers, sockets and the scheduler.
type Runtime struct {
	mu sync.Mutex

	Bus        *event.Bus
	Content    *resource.Store
	Factory    *quest.Factory
	Missions   *mission.Manager
	World      *world.Manager
	Companions *companion.Manager

	logger *zap.Logger
}

// New wires the managers. Nothing is loaded until Initialize.
func New(content *resource.Store, store storage.BlobStore, opts Options, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := event.NewBus(logger.Named("bus"))
	w := world.NewManager(bus, store, world.Options{StartingLocations: content.StartingLocations()}, logger.Named("world"))
	rt := &Runtime{
		Bus:     bus,
		Content: content,
		Factory: quest.NewFactory(content, w),
		Missions: mission.NewManager(bus, store, mission.Options{
			MainCharacter:   opts.MainCharacter,
			RecentEventsCap: opts.RecentEventsCap,
			StateLogCap:     opts.StateLogCap,
			Tuning:          opts.Tuning,
		}, logger.Named("missions")),
		World:  w,
		logger: logger,
	}
	rt.Companions = companion.NewManager(bus, store, content, w, logger.Named("companions"))
	return rt
}

// Initialize loads persisted state and subscribes every manager. World
// state goes first so companion gates and quest prerequisites see it.
func (rt *Runtime) Initialize(ctx context.Context) {
	rt.Do(func() error {
		rt.World.Initialize(ctx)
		rt.Companions.Initialize(ctx)
		rt.Missions.Initialize(ctx, mission.InitOptions{})
		return nil
	})
	rt.logger.Info("runtime initialized",
		zap.Int("templates", len(rt.Content.QuestTemplates())),
		zap.Int("quests", len(rt.Missions.Quests())))
}

// Do runs fn while holding the runtime lock.
func (rt *Runtime) Do(fn func() error) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return fn()
}

// Emit publishes a gameplay event under the runtime lock.
func (rt *Runtime) Emit(ctx context.Context, name string, payload event.Payload) {
	rt.Do(func() error {
		rt.Bus.Emit(ctx, name, payload)
		return nil
	})
}

// Tick advances every active quest clock by dt.
func (rt *Runtime) Tick(ctx context.Context, dt time.Duration) int {
	var failed int
	rt.Do(func() error {
		failed = rt.Missions.Tick(ctx, dt)
		return nil
	})
	return failed
}

// Save persists the mission manager. World and companion state persist on
// every change.
func (rt *Runtime) Save(ctx context.Context) {
	rt.Do(func() error {
		rt.Missions.SaveToStorage(ctx)
		return nil
	})
}

// OfferTemplate instantiates a template for actor and offers it. typ may be
// empty to use the template's own type.
func (rt *Runtime) OfferTemplate(ctx context.Context, templateID, actor string, typ quest.Type) (*quest.Quest, bool, error) {
	var (
		q  *quest.Quest
		ok bool
	)
	err := rt.Do(func() error {
		if actor == "" {
			actor = rt.Missions.MainCharacter()
		}
		if tpl := rt.Content.QuestTemplate(templateID); tpl != nil && !tpl.Repeatable && rt.Missions.HasOpenTemplate(templateID) {
			return fmt.Errorf("offer %s: %w: already in progress", templateID, quest.ErrNotRepeatable)
		}
		created, err := rt.Factory.CreateFromTemplate(templateID, quest.CreateOptions{ActorID: actor})
		if err != nil {
			return fmt.Errorf("offer %s: %w", templateID, err)
		}
		if typ == "" {
			typ = created.Type
		}
		q, ok = rt.Missions.OfferQuest(ctx, created, typ)
		return nil
	})
	return q, ok, err
}

// Reset clears quest, world and companion state.
func (rt *Runtime) Reset(ctx context.Context) {
	rt.Do(func() error {
		rt.Missions.Reset(ctx)
		rt.World.Reset(ctx)
		rt.Companions.Reset(ctx)
		return nil
	})
}
