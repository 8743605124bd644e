package quest

import (
	"context"
	"math"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
)

// MissionState is the lifecycle of a timed mission.
type MissionState string

const (
	MissionPending   MissionState = "pending"
	MissionActive    MissionState = "active"
	MissionCompleted MissionState = "completed"
	MissionFailed    MissionState = "failed"
)

// Rewards is a money/exp/items bundle.
type Rewards struct {
	Money int      `json:"money"`
	Exp   int      `json:"exp"`
	Items []string `json:"items,omitempty"`
}

// RewardTuning holds the balance constants used by CalculateRewards.
type RewardTuning struct {
	TimeBonusPercent      int `mapstructure:"time_bonus_percent"`
	PartnerBonusPercent   int `mapstructure:"partner_bonus_percent"`
	PartnerBonusThreshold int `mapstructure:"partner_bonus_threshold"`
}

// DefaultRewardTuning is +20% for finishing with more than half the time left
// and +10% exp for three or more distinct partners.
var DefaultRewardTuning = RewardTuning{
	TimeBonusPercent:      20,
	PartnerBonusPercent:   10,
	PartnerBonusThreshold: 3,
}

// CompletionData is supplied by whoever completes a mission.
type CompletionData struct {
	CompletionType string
	AISummary      string
	RewardModifier float64 // 0 means 1.0
}

// Stats summarises a finished mission.
type Stats struct {
	ElapsedS            float64  `json:"elapsedS"`
	ObjectivesCompleted int      `json:"objectivesCompleted"`
	ObjectivesTotal     int      `json:"objectivesTotal"`
	PartnersUsed        []string `json:"partnersUsed,omitempty"`
}

// CompletionEvent is the MISSION_COMPLETED payload. Quest is nil for plain missions.
type CompletionEvent struct {
	Mission        *Mission `json:"-"`
	Quest          *Quest   `json:"quest,omitempty"`
	MissionID      string   `json:"missionId"`
	Rewards        Rewards  `json:"rewards"`
	Stats          Stats    `json:"stats"`
	CompletionType string   `json:"completionType"`
	AISummary      string   `json:"aiSummary,omitempty"`
}

// FailureEvent is the MISSION_FAILED payload.
type FailureEvent struct {
	Mission   *Mission `json:"-"`
	Quest     *Quest   `json:"quest,omitempty"`
	MissionID string   `json:"missionId"`
	Reason    string   `json:"reason"`
}

// MissionEvent is the MISSION_STARTED payload.
type MissionEvent struct {
	Mission   *Mission `json:"-"`
	Quest     *Quest   `json:"quest,omitempty"`
	MissionID string   `json:"missionId"`
}

// Mission is a timed unit of play with rewards. Quest embeds it.
// It never schedules itself; an external driver calls Update.
type Mission struct {
	ID             string
	Title          string
	Description    string
	State          MissionState
	StartTime      *time.Time
	EndTime        *time.Time
	Elapsed        time.Duration
	TimeLimit      time.Duration
	Rewards        Rewards
	FinalRewards   *Rewards
	RewardModifier float64
	PartnersUsed   []string
	FailReason     string

	emitter event.Emitter
	tuning  RewardTuning
}

// NewMission creates a pending mission.
func NewMission(id, title string, rewards Rewards, timeLimit time.Duration) *Mission {
	return &Mission{
		ID:             id,
		Title:          title,
		State:          MissionPending,
		Rewards:        rewards,
		TimeLimit:      timeLimit,
		RewardModifier: 1,
		tuning:         DefaultRewardTuning,
	}
}

// SetEmitter attaches the bus used for lifecycle events. nil disables emission.
func (m *Mission) SetEmitter(e event.Emitter) { m.emitter = e }

// SetRewardTuning replaces the balance constants.
func (m *Mission) SetRewardTuning(t RewardTuning) { m.tuning = t }

// RewardTuning returns the balance constants in use.
func (m *Mission) RewardTuning() RewardTuning { return m.tuning }

func (m *Mission) emit(ctx context.Context, name string, data interface{}) {
	if m.emitter != nil {
		m.emitter.Emit(ctx, name, data)
	}
}

// Start moves a pending mission to active.
func (m *Mission) Start(ctx context.Context) bool {
	if m.State != MissionPending {
		return false
	}
	m.begin()
	m.emit(ctx, event.MissionStarted, &MissionEvent{Mission: m, MissionID: m.ID})
	return true
}

func (m *Mission) begin() {
	now := time.Now()
	m.State = MissionActive
	m.StartTime = &now
	m.Elapsed = 0
}

// Update advances the mission clock by dt and fails the mission when its time
// limit is exceeded. It returns true if the mission failed on this tick.
func (m *Mission) Update(ctx context.Context, dt time.Duration) bool {
	if !m.advance(dt) {
		return false
	}
	return m.Fail(ctx, ReasonTimeLimit)
}

// ReasonTimeLimit is the failure reason used when the time limit runs out.
const ReasonTimeLimit = "time limit exceeded"

func (m *Mission) advance(dt time.Duration) bool {
	if m.State != MissionActive {
		return false
	}
	if dt > 0 {
		m.Elapsed += dt
	}
	return m.TimeLimit > 0 && m.Elapsed > m.TimeLimit
}

// Complete finishes the mission and emits MISSION_COMPLETED. Terminal missions
// are left untouched.
func (m *Mission) Complete(ctx context.Context, data CompletionData) bool {
	if m.isTerminal() {
		return false
	}
	ev := m.finish(data)
	m.emit(ctx, event.MissionCompleted, ev)
	return true
}

func (m *Mission) finish(data CompletionData) *CompletionEvent {
	now := time.Now()
	m.State = MissionCompleted
	m.EndTime = &now
	m.RewardModifier = 1
	if data.RewardModifier > 0 {
		m.RewardModifier = data.RewardModifier
	}
	r := m.CalculateRewards()
	m.FinalRewards = &r
	typ := data.CompletionType
	if typ == "" {
		typ = "standard"
	}
	return &CompletionEvent{
		Mission:        m,
		MissionID:      m.ID,
		Rewards:        r,
		Stats:          Stats{ElapsedS: m.Elapsed.Seconds(), PartnersUsed: append([]string(nil), m.PartnersUsed...)},
		CompletionType: typ,
		AISummary:      data.AISummary,
	}
}

// Fail ends the mission unsuccessfully and emits MISSION_FAILED.
func (m *Mission) Fail(ctx context.Context, reason string) bool {
	if m.isTerminal() {
		return false
	}
	ev := m.markFailed(reason)
	m.emit(ctx, event.MissionFailed, ev)
	return true
}

func (m *Mission) markFailed(reason string) *FailureEvent {
	now := time.Now()
	m.State = MissionFailed
	m.EndTime = &now
	m.FailReason = reason
	return &FailureEvent{Mission: m, MissionID: m.ID, Reason: reason}
}

func (m *Mission) isTerminal() bool {
	return m.State == MissionCompleted || m.State == MissionFailed
}

// UsePartner records a partner or companion id used during the mission.
func (m *Mission) UsePartner(id string) bool {
	if id == "" {
		return false
	}
	for _, p := range m.PartnersUsed {
		if p == id {
			return false
		}
	}
	m.PartnersUsed = append(m.PartnersUsed, id)
	return true
}

// CalculateRewards scales the base reward. Money and exp are floored after
// each adjustment.
func (m *Mission) CalculateRewards() Rewards {
	t := m.tuning
	money, exp := m.Rewards.Money, m.Rewards.Exp

	if m.TimeLimit > 0 && m.TimeLimit-m.Elapsed > m.TimeLimit/2 {
		money = applyPercent(money, t.TimeBonusPercent)
		exp = applyPercent(exp, t.TimeBonusPercent)
	}
	if t.PartnerBonusThreshold > 0 && len(m.PartnersUsed) >= t.PartnerBonusThreshold {
		exp = applyPercent(exp, t.PartnerBonusPercent)
	}

	mod := m.RewardModifier
	if mod <= 0 {
		mod = 1
	}
	money = int(math.Floor(float64(money) * mod))
	exp = int(math.Floor(float64(exp) * mod))

	return Rewards{Money: money, Exp: exp, Items: append([]string(nil), m.Rewards.Items...)}
}

func applyPercent(v, pct int) int {
	return int(math.Floor(float64(v) * float64(100+pct) / 100))
}
