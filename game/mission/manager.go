// Package mission implements the Mission Manager: the registry of quests,
// routing of gameplay events to objectives, lifecycle bookkeeping and
// persistence.
package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/kasuganosora/skyquest/storage"
	"go.uber.org/zap"
)

// ErrQuestNotFound is returned when an operation names an unknown quest id.
var ErrQuestNotFound = errors.New("mission: quest not found")

// Owner is the bus subscription owner for the manager's listeners.
const Owner = "mission_manager"

// Options configures a Manager.
type Options struct {
	MainCharacter   string
	RecentEventsCap int
	StateLogCap     int
	Tuning          quest.RewardTuning
	StorageKey      string
}

func (o *Options) applyDefaults() {
	if o.MainCharacter == "" {
		o.MainCharacter = "jett"
	}
	if o.RecentEventsCap <= 0 {
		o.RecentEventsCap = 20
	}
	if o.StateLogCap <= 0 {
		o.StateLogCap = 100
	}
	if o.Tuning == (quest.RewardTuning{}) {
		o.Tuning = quest.DefaultRewardTuning
	}
	if o.StorageKey == "" {
		o.StorageKey = storage.KeyMissionManager
	}
}

// Record is the denormalised per-quest projection used by UI queries.
type Record struct {
	QuestID      string       `json:"questId"`
	TemplateID   string       `json:"templateId,omitempty"`
	Title        string       `json:"title"`
	Type         quest.Type   `json:"type"`
	Status       quest.Status `json:"status"`
	Leader       string       `json:"leader,omitempty"`
	Participants []string     `json:"participants,omitempty"`
	Progress     float64      `json:"progress"`
	CreatedAt    time.Time    `json:"createdAt"`
	OfferedAt    *time.Time   `json:"offeredAt,omitempty"`
	AcceptedAt   *time.Time   `json:"acceptedAt,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	AbandonedAt  *time.Time   `json:"abandonedAt,omitempty"`
	FailedAt     *time.Time   `json:"failedAt,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// StateChange is the MISSION_STATE_CHANGED payload and a state log entry.
type StateChange struct {
	QuestID    string       `json:"questId"`
	TemplateID string       `json:"templateId,omitempty"`
	Type       quest.Type   `json:"type"`
	From       quest.Status `json:"from"`
	To         quest.Status `json:"to"`
	Reason     string       `json:"reason,omitempty"`
	At         time.Time    `json:"at"`
}

// RecentEvent is one entry of the recent gameplay event ring.
type RecentEvent struct {
	Type    string        `json:"type"`
	ActorID string        `json:"actorId"`
	Payload event.Payload `json:"payload,omitempty"`
	At      time.Time     `json:"at"`
}

// ObjectiveProgress is the OBJECTIVE_PROGRESS_UPDATED payload.
type ObjectiveProgress struct {
	QuestID       string           `json:"questId"`
	ObjectiveID   string           `json:"objectiveId"`
	Objective     *quest.Objective `json:"objective"`
	CurrentCount  int              `json:"currentCount"`
	RequiredCount int              `json:"requiredCount"`
	Completed     bool             `json:"completed"`
	ActorID       string           `json:"actorId"`
	EventType     string           `json:"eventType"`
}

// QuestProgress is the QUEST_PROGRESS_UPDATED payload.
type QuestProgress struct {
	QuestID  string  `json:"questId"`
	Progress float64 `json:"progress"`
}

// RecordEvent is the MISSION_RECORD_CREATED payload.
type RecordEvent struct {
	Record Record `json:"record"`
}

// ReadyEvent is the MISSION_MANAGER_READY payload.
type ReadyEvent struct {
	MainCharacter string `json:"mainCharacter"`
	Quests        int    `json:"quests"`
	Active        int    `json:"active"`
}

// Manager owns every quest and the index sets derived from their status.
// It is not safe for concurrent use; callers serialise access.
type Manager struct {
	bus    *event.Bus
	store  storage.BlobStore
	logger *zap.Logger
	opts   Options

	initialized   bool
	mainCharacter string
	driving       string // quest whose lifecycle call is in progress

	quests  map[string]*quest.Quest
	order   []string
	records map[string]*Record

	activeMain string
	activeSubs idSet
	offered    idSet
	completed  idSet
	abandoned  idSet
	failed     idSet

	recentEvents []RecentEvent
	stateLog     []StateChange
}

// NewManager creates an uninitialised Manager. store may be nil to disable
// persistence.
func NewManager(bus *event.Bus, store storage.BlobStore, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	m := &Manager{
		bus:           bus,
		store:         store,
		logger:        logger,
		opts:          opts,
		mainCharacter: opts.MainCharacter,
	}
	m.clear()
	return m
}

func (m *Manager) clear() {
	m.quests = make(map[string]*quest.Quest)
	m.order = nil
	m.records = make(map[string]*Record)
	m.activeMain = ""
	m.activeSubs = nil
	m.offered = nil
	m.completed = nil
	m.abandoned = nil
	m.failed = nil
	m.recentEvents = nil
	m.stateLog = nil
}

func (m *Manager) emit(ctx context.Context, name string, data interface{}) {
	if m.bus != nil {
		m.bus.Emit(ctx, name, data)
	}
}

// InitOptions are applied by Initialize.
type InitOptions struct {
	MainCharacter string
}

// Initialize loads persisted state, registers the event listeners and marks
// the manager ready. Later calls do nothing.
func (m *Manager) Initialize(ctx context.Context, opts InitOptions) {
	if m.initialized {
		return
	}
	m.LoadFromStorage(ctx)
	if opts.MainCharacter != "" {
		m.mainCharacter = opts.MainCharacter
	}
	m.registerListeners()
	m.initialized = true
	m.logger.Info("mission manager ready",
		zap.String("main_character", m.mainCharacter),
		zap.Int("quests", len(m.quests)))
	m.emit(ctx, event.MissionManagerReady, &ReadyEvent{
		MainCharacter: m.mainCharacter,
		Quests:        len(m.quests),
		Active:        len(m.ActiveQuests()),
	})
}

// Initialized reports whether Initialize has run.
func (m *Manager) Initialized() bool { return m.initialized }

// MainCharacter returns the default actor for unattributed events.
func (m *Manager) MainCharacter() string { return m.mainCharacter }

// SetMainCharacter changes the default actor.
func (m *Manager) SetMainCharacter(id string) {
	if id != "" {
		m.mainCharacter = id
	}
}

// ---- registry ----

func (m *Manager) attach(q *quest.Quest) {
	if m.bus != nil {
		q.SetEmitter(m.bus)
	} else {
		q.SetEmitter(nil)
	}
	q.SetRewardTuning(m.opts.Tuning)
}

// RegisterQuest adds or replaces a quest without changing its status. typ
// overrides the quest's type when non-empty.
func (m *Manager) RegisterQuest(q *quest.Quest, typ quest.Type) {
	if typ != "" {
		q.Type = typ
	} else if q.Type == "" {
		q.Type = quest.TypeSub
	}
	m.attach(q)
	if _, ok := m.quests[q.ID]; !ok {
		m.order = append(m.order, q.ID)
		m.records[q.ID] = &Record{QuestID: q.ID, CreatedAt: time.Now()}
	}
	m.quests[q.ID] = q
	m.refreshRecord(q)
}

func (m *Manager) refreshRecord(q *quest.Quest) *Record {
	r, ok := m.records[q.ID]
	if !ok {
		r = &Record{QuestID: q.ID, CreatedAt: time.Now()}
		m.records[q.ID] = r
	}
	r.TemplateID = q.TemplateID
	r.Title = q.Title
	r.Type = q.Type
	r.Status = q.Status
	r.Leader = q.Leader()
	r.Participants = make([]string, 0, len(q.Participants))
	for _, p := range q.Participants {
		r.Participants = append(r.Participants, p.CharacterID)
	}
	r.Progress = q.Progress()
	r.UpdatedAt = time.Now()
	return r
}

// untrack removes id from every index set and the main pointer.
func (m *Manager) untrack(id string) {
	if m.activeMain == id {
		m.activeMain = ""
	}
	m.activeSubs.remove(id)
	m.offered.remove(id)
	m.completed.remove(id)
	m.abandoned.remove(id)
	m.failed.remove(id)
}

func (m *Manager) logState(ctx context.Context, q *quest.Quest, from, to quest.Status, reason string) {
	change := StateChange{
		QuestID:    q.ID,
		TemplateID: q.TemplateID,
		Type:       q.Type,
		From:       from,
		To:         to,
		Reason:     reason,
		At:         time.Now(),
	}
	m.stateLog = append(m.stateLog, change)
	if over := len(m.stateLog) - m.opts.StateLogCap; over > 0 {
		m.stateLog = append([]StateChange(nil), m.stateLog[over:]...)
	}
	m.logger.Info("quest state changed",
		zap.String("quest_id", q.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason))
	m.emit(ctx, event.MissionStateChanged, &change)
	m.emit(ctx, event.MissionStateLog, &change)
}

func (m *Manager) skip(op string, q *quest.Quest, want quest.Status) {
	m.logger.Info("quest transition skipped",
		zap.String("op", op),
		zap.String("quest_id", q.ID),
		zap.String("from", string(q.Status)),
		zap.String("to", string(want)))
}

// ---- lifecycle ----

// OfferQuest registers q and moves it to offered. A quest that cannot be
// offered is returned unchanged with false.
func (m *Manager) OfferQuest(ctx context.Context, q *quest.Quest, typ quest.Type) (*quest.Quest, bool) {
	m.RegisterQuest(q, typ)
	from := q.Status
	if !q.Offer(ctx) {
		m.skip("offer", q, quest.StatusOffered)
		return q, false
	}
	m.untrack(q.ID)
	m.offered.add(q.ID)
	r := m.refreshRecord(q)
	r.OfferedAt = q.OfferedAt

	m.emit(ctx, event.MissionRecordCreated, &RecordEvent{Record: *r})
	m.logState(ctx, q, from, quest.StatusOffered, "offered")
	m.SaveToStorage(ctx)
	return q, true
}

// AcceptOptions customise AcceptQuest.
type AcceptOptions struct {
	Type    quest.Type // defaults to the quest's own type
	ActorID string     // defaults to the main character
}

// AcceptQuest activates an offered quest. Unknown ids are an error; quests
// that are not offered, or a second main quest, are returned unchanged.
func (m *Manager) AcceptQuest(ctx context.Context, questID string, opts AcceptOptions) (*quest.Quest, bool, error) {
	q, ok := m.quests[questID]
	if !ok {
		return nil, false, fmt.Errorf("accept %s: %w", questID, ErrQuestNotFound)
	}
	if q.Status != quest.StatusOffered || !quest.CanTransition(q.Status, quest.StatusActive) {
		m.skip("accept", q, quest.StatusActive)
		return q, false, nil
	}
	typ := opts.Type
	if typ == "" {
		typ = q.Type
	}
	if typ == quest.TypeMain && m.activeMain != "" && m.activeMain != q.ID {
		m.logger.Info("quest accept skipped: main quest already active",
			zap.String("quest_id", q.ID), zap.String("active_main", m.activeMain))
		return q, false, nil
	}
	q.Type = typ

	actor := opts.ActorID
	if actor == "" {
		actor = m.mainCharacter
	}
	if p, added := q.AddParticipant(ctx, actor, quest.RoleLeader); !added && p != nil && q.Leader() == "" {
		p.Role = quest.RoleLeader
	}

	from := q.Status
	m.drive(q, func() { q.Accept(ctx) })
	m.track(q)
	r := m.refreshRecord(q)
	r.AcceptedAt = q.AcceptedAt
	m.logState(ctx, q, from, quest.StatusActive, "accepted")
	m.SaveToStorage(ctx)
	return q, true, nil
}

// drive runs a quest lifecycle call. Reconciliation listeners ignore the
// events it emits synchronously since the caller does the bookkeeping.
func (m *Manager) drive(q *quest.Quest, fn func()) {
	prev := m.driving
	m.driving = q.ID
	defer func() { m.driving = prev }()
	fn()
}

// track places an active quest into the main pointer or the sub set.
func (m *Manager) track(q *quest.Quest) {
	m.offered.remove(q.ID)
	m.abandoned.remove(q.ID)
	if q.Type == quest.TypeMain && (m.activeMain == "" || m.activeMain == q.ID) {
		m.activeSubs.remove(q.ID)
		m.activeMain = q.ID
		return
	}
	if q.Type == quest.TypeMain {
		m.logger.Warn("second main quest tracked as sub",
			zap.String("quest_id", q.ID), zap.String("active_main", m.activeMain))
	}
	m.activeSubs.add(q.ID)
}

// SyncAccepted reconciles a quest that was accepted outside AcceptQuest.
// Re-syncing changes nothing beyond a redundant save.
func (m *Manager) SyncAccepted(ctx context.Context, q *quest.Quest) {
	if q == nil || q.Status != quest.StatusActive {
		return
	}
	if _, ok := m.quests[q.ID]; !ok {
		m.RegisterQuest(q, "")
	}
	m.track(q)
	r := m.refreshRecord(q)
	if r.AcceptedAt == nil {
		r.AcceptedAt = q.AcceptedAt
	}
	m.SaveToStorage(ctx)
}

// AbandonQuest abandons an offered or active quest.
func (m *Manager) AbandonQuest(ctx context.Context, questID string) (bool, error) {
	q, ok := m.quests[questID]
	if !ok {
		return false, fmt.Errorf("abandon %s: %w", questID, ErrQuestNotFound)
	}
	if q.Status != quest.StatusActive && q.Status != quest.StatusOffered {
		m.skip("abandon", q, quest.StatusAbandoned)
		return false, nil
	}
	from := q.Status
	m.drive(q, func() { q.Abandon(ctx) })
	m.markAbandoned(ctx, q, from, "abandoned")
	return true, nil
}

// DeclineQuest abandons an offered quest. It can be offered again later.
func (m *Manager) DeclineQuest(ctx context.Context, questID string) (bool, error) {
	q, ok := m.quests[questID]
	if !ok {
		return false, fmt.Errorf("decline %s: %w", questID, ErrQuestNotFound)
	}
	if q.Status != quest.StatusOffered {
		m.skip("decline", q, quest.StatusAbandoned)
		return false, nil
	}
	m.drive(q, func() { q.Abandon(ctx) })
	m.markAbandoned(ctx, q, quest.StatusOffered, "declined")
	return true, nil
}

// MarkCompleted moves a quest into the completed set.
func (m *Manager) MarkCompleted(ctx context.Context, questID string) bool {
	q, ok := m.quests[questID]
	if !ok || m.completed.has(questID) {
		return false
	}
	from := m.records[questID].Status
	if from == quest.StatusCompleted {
		from = quest.StatusActive
	}
	m.untrack(questID)
	m.completed.add(questID)
	r := m.refreshRecord(q)
	r.Status = quest.StatusCompleted
	now := time.Now()
	r.CompletedAt = &now
	m.logState(ctx, q, from, quest.StatusCompleted, "completed")
	m.SaveToStorage(ctx)
	return true
}

// MarkAbandoned moves a quest into the abandoned set.
func (m *Manager) MarkAbandoned(ctx context.Context, questID, reason string) bool {
	q, ok := m.quests[questID]
	if !ok {
		return false
	}
	return m.markAbandoned(ctx, q, m.records[questID].Status, reason)
}

func (m *Manager) markAbandoned(ctx context.Context, q *quest.Quest, from quest.Status, reason string) bool {
	if m.abandoned.has(q.ID) {
		return false
	}
	m.untrack(q.ID)
	m.abandoned.add(q.ID)
	r := m.refreshRecord(q)
	r.Status = quest.StatusAbandoned
	now := time.Now()
	r.AbandonedAt = &now
	m.logState(ctx, q, from, quest.StatusAbandoned, reason)
	m.SaveToStorage(ctx)
	return true
}

// MarkFailed moves a quest into the failed set.
func (m *Manager) MarkFailed(ctx context.Context, questID, reason string) bool {
	q, ok := m.quests[questID]
	if !ok || m.failed.has(questID) {
		return false
	}
	from := m.records[questID].Status
	if from == quest.StatusFailed {
		from = quest.StatusActive
	}
	m.untrack(questID)
	m.failed.add(questID)
	r := m.refreshRecord(q)
	r.Status = quest.StatusFailed
	now := time.Now()
	r.FailedAt = &now
	m.logState(ctx, q, from, quest.StatusFailed, reason)
	m.SaveToStorage(ctx)
	return true
}

// CheckQuestCompletion completes an active quest once every required
// objective is done.
func (m *Manager) CheckQuestCompletion(ctx context.Context, q *quest.Quest) bool {
	if q == nil || q.Status != quest.StatusActive || !q.RequiredObjectivesDone() {
		return false
	}
	m.drive(q, func() { q.Complete(ctx, quest.CompletionData{CompletionType: "objectives"}) })
	m.MarkCompleted(ctx, q.ID)
	return true
}

// Tick advances every active quest's clock. Quests past their time limit
// fail.
func (m *Manager) Tick(ctx context.Context, dt time.Duration) int {
	failed := 0
	for _, q := range m.ActiveQuests() {
		var expired bool
		m.drive(q, func() { expired = q.Update(ctx, dt) })
		if expired {
			m.MarkFailed(ctx, q.ID, q.FailReason)
			failed++
		}
	}
	return failed
}

// AddDynamicObjective appends a generated objective to a quest.
func (m *Manager) AddDynamicObjective(ctx context.Context, questID string, o *quest.Objective) (bool, error) {
	q, ok := m.quests[questID]
	if !ok {
		return false, fmt.Errorf("add objective to %s: %w", questID, ErrQuestNotFound)
	}
	if !q.AddDynamicObjective(ctx, o) {
		return false, nil
	}
	m.refreshRecord(q)
	m.SaveToStorage(ctx)
	return true, nil
}

// Reset drops every quest and persists the empty state. Listeners stay.
func (m *Manager) Reset(ctx context.Context) {
	m.clear()
	m.logger.Info("mission manager reset")
	m.SaveToStorage(ctx)
}

// ---- queries ----

// Quest returns the quest with the given id, or nil.
func (m *Manager) Quest(id string) *quest.Quest { return m.quests[id] }

// Quests returns every registered quest in registration order.
func (m *Manager) Quests() []*quest.Quest {
	out := make([]*quest.Quest, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.quests[id])
	}
	return out
}

// HasOpenTemplate reports whether a pending, offered or active quest was
// built from templateID.
func (m *Manager) HasOpenTemplate(templateID string) bool {
	if templateID == "" {
		return false
	}
	for _, q := range m.quests {
		if q.TemplateID != templateID {
			continue
		}
		switch q.Status {
		case quest.StatusPending, quest.StatusOffered, quest.StatusActive:
			return true
		}
	}
	return false
}

// ActiveMainQuest returns the active main quest, or nil.
func (m *Manager) ActiveMainQuest() *quest.Quest {
	if m.activeMain == "" {
		return nil
	}
	return m.quests[m.activeMain]
}

// ActiveSubQuests returns the active non-main quests in acceptance order.
func (m *Manager) ActiveSubQuests() []*quest.Quest { return m.lookup(m.activeSubs) }

// ActiveQuests returns the main quest first, then the subs.
func (m *Manager) ActiveQuests() []*quest.Quest {
	var out []*quest.Quest
	if q := m.ActiveMainQuest(); q != nil {
		out = append(out, q)
	}
	return append(out, m.ActiveSubQuests()...)
}

// OfferedQuests returns quests waiting for acceptance.
func (m *Manager) OfferedQuests() []*quest.Quest { return m.lookup(m.offered) }

func (m *Manager) CompletedQuestIDs() []string { return m.completed.list() }
func (m *Manager) AbandonedQuestIDs() []string { return m.abandoned.list() }
func (m *Manager) FailedQuestIDs() []string    { return m.failed.list() }

// Records returns copies of the denormalised records in registration order.
func (m *Manager) Records() []Record {
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		if r, ok := m.records[id]; ok {
			c := *r
			c.Participants = append([]string(nil), r.Participants...)
			out = append(out, c)
		}
	}
	return out
}

// RecentEvents returns the recent gameplay events, oldest first.
func (m *Manager) RecentEvents() []RecentEvent {
	return append([]RecentEvent(nil), m.recentEvents...)
}

// StateLog returns the state change log, oldest first.
func (m *Manager) StateLog() []StateChange {
	return append([]StateChange(nil), m.stateLog...)
}

func (m *Manager) lookup(ids idSet) []*quest.Quest {
	out := make([]*quest.Quest, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.quests[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

// ---- idSet ----

// idSet is an insertion-ordered set of quest ids.
type idSet []string

func (s idSet) has(id string) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

func (s *idSet) add(id string) bool {
	if s.has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

func (s *idSet) remove(id string) bool {
	for i, x := range *s {
		if x == id {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

func (s idSet) list() []string {
	if len(s) == 0 {
		return []string{}
	}
	return append([]string(nil), s...)
}
