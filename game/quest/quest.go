package quest

import (
	"context"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
)

// Type classifies a quest. At most one main quest is active at a time.
type Type string

const (
	TypeMain    Type = "main"
	TypeSub     Type = "sub"
	TypeSide    Type = "side"
	TypeDynamic Type = "dynamic"
)

// ParseType maps a free-form type string to a Type, defaulting to sub.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeMain, TypeSub, TypeSide, TypeDynamic:
		return Type(s)
	}
	return TypeSub
}

// Role of a participant.
type Role string

const (
	RoleLeader  Role = "leader"
	RoleSupport Role = "support"
)

// Participant is a character taking part in a quest.
type Participant struct {
	CharacterID         string    `json:"characterId"`
	Role                Role      `json:"role"`
	Contribution        float64   `json:"contribution"`
	ObjectivesCompleted int       `json:"objectivesCompleted"`
	JoinedAt            time.Time `json:"joinedAt"`
}

// Contribution kinds accepted by RecordContribution.
const (
	ContributionObjective = "objective"
	ContributionTalk      = "talk"
	ContributionCollect   = "collect"
	ContributionDeliver   = "deliver"
	ContributionExplore   = "explore"
	ContributionAssist    = "assist"
	ContributionAbility   = "ability"
)

// ContributionWeights is how much each contribution kind adds to a
// participant's score. Unknown kinds add the "default" weight.
var ContributionWeights = map[string]float64{
	ContributionObjective: 0.25,
	ContributionTalk:      0.05,
	ContributionCollect:   0.1,
	ContributionDeliver:   0.2,
	ContributionExplore:   0.1,
	ContributionAssist:    0.15,
	ContributionAbility:   0.15,
	"default":             0.05,
}

// QuestEvent is the payload of the QUEST_* events.
type QuestEvent struct {
	Quest       *Quest       `json:"quest"`
	QuestID     string       `json:"questId"`
	TemplateID  string       `json:"templateId,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
	Objective   *Objective   `json:"objective,omitempty"`
	Rewards     *Rewards     `json:"rewards,omitempty"`
}

// Quest is a Mission with a status lifecycle, objectives and participants.
type Quest struct {
	Mission

	TemplateID            string
	Type                  Type
	Status                Status
	Objectives            []*Objective
	Participants          []*Participant
	AIContext             map[string]interface{}
	DynamicBranches       []string
	RelatedNPCs           []string
	QuestGiverNPC         string
	DestinationLocationID string
	UnlockLocations       []string
	OfferedAt             *time.Time
	AcceptedAt            *time.Time
	CompletedAt           *time.Time
}

// New creates a pending quest with no objectives.
func New(id, title string, typ Type) *Quest {
	return &Quest{
		Mission:   *NewMission(id, title, Rewards{}, 0),
		Type:      typ,
		Status:    StatusPending,
		AIContext: make(map[string]interface{}),
	}
}

func (q *Quest) event() *QuestEvent {
	return &QuestEvent{Quest: q, QuestID: q.ID, TemplateID: q.TemplateID}
}

// Offer moves pending or abandoned quests to offered.
func (q *Quest) Offer(ctx context.Context) bool {
	if !Transition(q, StatusOffered) {
		return false
	}
	now := time.Now()
	q.OfferedAt = &now
	q.emit(ctx, event.QuestOffered, q.event())
	return true
}

// Accept activates an offered quest, its mission clock and all its objectives.
func (q *Quest) Accept(ctx context.Context) bool {
	if q.Status != StatusOffered {
		return false
	}
	q.Status = StatusActive
	now := time.Now()
	q.AcceptedAt = &now
	q.Mission.begin()
	for _, o := range q.Objectives {
		o.Activate()
	}
	q.emit(ctx, event.QuestAccepted, q.event())
	q.emit(ctx, event.QuestActivated, q.event())
	q.emit(ctx, event.MissionStarted, &MissionEvent{Mission: &q.Mission, Quest: q, MissionID: q.ID})
	return true
}

// Abandon moves a pending, offered or active quest to abandoned.
func (q *Quest) Abandon(ctx context.Context) bool {
	if !CanTransition(q.Status, StatusAbandoned) {
		return false
	}
	q.Status = StatusAbandoned
	q.emit(ctx, event.QuestAbandoned, q.event())
	return true
}

// Complete finishes an active quest, computes final rewards and emits
// MISSION_COMPLETED followed by QUEST_COMPLETED.
func (q *Quest) Complete(ctx context.Context, data CompletionData) bool {
	if !Transition(q, StatusCompleted) {
		return false
	}
	ev := q.Mission.finish(data)
	ev.Quest = q
	ev.Stats.ObjectivesTotal = len(q.Objectives)
	for _, o := range q.Objectives {
		if o.IsCompleted() {
			ev.Stats.ObjectivesCompleted++
		}
	}
	q.CompletedAt = q.EndTime
	q.emit(ctx, event.MissionCompleted, ev)

	qe := q.event()
	r := ev.Rewards
	qe.Rewards = &r
	q.emit(ctx, event.QuestCompleted, qe)
	return true
}

// Fail ends an active quest unsuccessfully. Unlike Abandon this is terminal.
func (q *Quest) Fail(ctx context.Context, reason string) bool {
	if !Transition(q, StatusFailed) {
		return false
	}
	ev := q.Mission.markFailed(reason)
	ev.Quest = q
	q.emit(ctx, event.MissionFailed, ev)
	return true
}

// Update advances the quest clock and fails it when the time limit runs out.
// It returns true if the quest failed on this tick.
func (q *Quest) Update(ctx context.Context, dt time.Duration) bool {
	if q.Status != StatusActive {
		return false
	}
	if !q.Mission.advance(dt) {
		return false
	}
	return q.Fail(ctx, ReasonTimeLimit)
}

// Participant returns the participant with the given id, or nil.
func (q *Quest) Participant(characterID string) *Participant {
	for _, p := range q.Participants {
		if p.CharacterID == characterID {
			return p
		}
	}
	return nil
}

// Leader returns the id of the first leader, or "".
func (q *Quest) Leader() string {
	for _, p := range q.Participants {
		if p.Role == RoleLeader {
			return p.CharacterID
		}
	}
	return ""
}

// AddParticipant adds a character once. Re-adding returns the existing entry
// and false.
func (q *Quest) AddParticipant(ctx context.Context, characterID string, role Role) (*Participant, bool) {
	if characterID == "" {
		return nil, false
	}
	if p := q.Participant(characterID); p != nil {
		return p, false
	}
	if role == "" {
		role = RoleSupport
	}
	p := &Participant{CharacterID: characterID, Role: role, JoinedAt: time.Now()}
	q.Participants = append(q.Participants, p)
	qe := q.event()
	qe.Participant = p
	q.emit(ctx, event.QuestParticipantAdded, qe)
	return p, true
}

// RecordContribution adds the weight of kind to the character's score,
// capped at 1. Unknown characters join as support.
func (q *Quest) RecordContribution(ctx context.Context, characterID, kind string) float64 {
	p, _ := q.AddParticipant(ctx, characterID, RoleSupport)
	if p == nil {
		return 0
	}
	w, ok := ContributionWeights[kind]
	if !ok {
		w = ContributionWeights["default"]
	}
	p.Contribution += w
	if p.Contribution > 1 {
		p.Contribution = 1
	}
	return p.Contribution
}

// CreditObjective attributes a completed objective to a character.
func (q *Quest) CreditObjective(ctx context.Context, characterID string, o *Objective) {
	if characterID == "" || o == nil {
		return
	}
	o.CompletedBy = characterID
	q.RecordContribution(ctx, characterID, ContributionObjective)
	if p := q.Participant(characterID); p != nil {
		p.ObjectivesCompleted++
	}
}

// Objective returns the objective with the given id, or nil.
func (q *Quest) Objective(id string) *Objective {
	for _, o := range q.Objectives {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// AddDynamicObjective appends a runtime-generated objective. It is activated
// immediately when the quest is already active. Duplicate ids are rejected.
func (q *Quest) AddDynamicObjective(ctx context.Context, o *Objective) bool {
	if o == nil || o.ID == "" || q.Objective(o.ID) != nil || q.Status.IsTerminal() {
		return false
	}
	o.IsDynamic = true
	o.AIGenerated = true
	if o.Status == "" {
		o.Status = ObjectivePending
	}
	if q.Status == StatusActive {
		o.Activate()
	}
	q.Objectives = append(q.Objectives, o)
	q.DynamicBranches = append(q.DynamicBranches, o.ID)
	qe := q.event()
	qe.Objective = o
	q.emit(ctx, event.QuestObjectiveAdded, qe)
	return true
}

// ActiveObjective returns the first active objective, or nil.
func (q *Quest) ActiveObjective() *Objective {
	for _, o := range q.Objectives {
		if o.Status == ObjectiveActive {
			return o
		}
	}
	return nil
}

// PendingObjectives returns every objective not yet completed, in order.
func (q *Quest) PendingObjectives() []*Objective {
	var out []*Objective
	for _, o := range q.Objectives {
		if !o.IsCompleted() {
			out = append(out, o)
		}
	}
	return out
}

// RequiredObjectivesDone reports whether every non-optional objective is
// completed. A quest without required objectives is never done.
func (q *Quest) RequiredObjectivesDone() bool {
	required, done := 0, 0
	for _, o := range q.Objectives {
		if o.Optional {
			continue
		}
		required++
		if o.IsCompleted() {
			done++
		}
	}
	return required > 0 && done == required
}

// Progress is the fraction of required objectives completed.
func (q *Quest) Progress() float64 {
	required, done := 0, 0
	for _, o := range q.Objectives {
		if o.Optional {
			continue
		}
		required++
		if o.IsCompleted() {
			done++
		}
	}
	if required == 0 {
		return 0
	}
	return float64(done) / float64(required)
}
