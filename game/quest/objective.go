package quest

import (
	"fmt"
	"time"
)

// ObjectiveType is the kind of gameplay activity that advances an objective.
type ObjectiveType string

const (
	ObjectiveTalk         ObjectiveType = "TALK"
	ObjectiveCollect      ObjectiveType = "COLLECT"
	ObjectiveDeliver      ObjectiveType = "DELIVER"
	ObjectiveExplore      ObjectiveType = "EXPLORE"
	ObjectiveGoToLocation ObjectiveType = "GO_TO_LOCATION"
	ObjectiveFixBuild     ObjectiveType = "FIX_BUILD"
	ObjectiveAssist       ObjectiveType = "ASSIST"
	ObjectiveEscort       ObjectiveType = "ESCORT"
	ObjectiveInvestigate  ObjectiveType = "INVESTIGATE"
	ObjectiveClearManage  ObjectiveType = "CLEAR_MANAGE"
	ObjectiveDigRecover   ObjectiveType = "DIG_RECOVER"
	ObjectiveCustom       ObjectiveType = "CUSTOM"
)

// ObjectiveStatus only moves forward: pending, active, completed.
type ObjectiveStatus string

const (
	ObjectivePending   ObjectiveStatus = "pending"
	ObjectiveActive    ObjectiveStatus = "active"
	ObjectiveCompleted ObjectiveStatus = "completed"
)

// Condition is one match alternative. Any key in the map whose value equals
// the looked-up identifier satisfies the condition.
type Condition map[string]string

// Objective is a single measurable step of a quest.
type Objective struct {
	ID                string          `json:"id"`
	Type              ObjectiveType   `json:"type"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Status            ObjectiveStatus `json:"status"`
	CurrentCount      int             `json:"currentCount"`
	RequiredCount     int             `json:"requiredCount"`
	Progress          float64         `json:"progress"`
	Conditions        []Condition     `json:"conditions,omitempty"`
	Optional          bool            `json:"optional,omitempty"`
	AssignedCharacter string          `json:"assignedCharacter,omitempty"`
	IsDynamic         bool            `json:"isDynamic,omitempty"`
	AIGenerated       bool            `json:"aiGenerated,omitempty"`
	AIReasoning       string          `json:"aiReasoning,omitempty"`
	CompletedBy       string          `json:"completedBy,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
}

// NewObjective creates a pending objective. requiredCount below 1 is raised to 1.
func NewObjective(id string, typ ObjectiveType, title string, requiredCount int) *Objective {
	if requiredCount < 1 {
		requiredCount = 1
	}
	return &Objective{
		ID:            id,
		Type:          typ,
		Title:         title,
		Status:        ObjectivePending,
		RequiredCount: requiredCount,
	}
}

// Activate moves a pending objective to active. Other states are left alone.
func (o *Objective) Activate() bool {
	if o.Status != ObjectivePending {
		return false
	}
	o.Status = ObjectiveActive
	return true
}

// IsCompleted reports whether the objective has reached its terminal state.
func (o *Objective) IsCompleted() bool { return o.Status == ObjectiveCompleted }

// UpdateProgress sets the current count (negative values clamp to 0) and
// completes the objective once the requirement is met. It returns true when
// this call completed the objective. Completed objectives are not touched.
func (o *Objective) UpdateProgress(count int) bool {
	if o.IsCompleted() {
		return false
	}
	if count < 0 {
		count = 0
	}
	o.CurrentCount = count
	o.recompute()
	if o.Progress >= 1 {
		o.Complete()
		return true
	}
	return false
}

// Complete forces the objective to completed. Idempotent.
func (o *Objective) Complete() {
	if o.IsCompleted() {
		return
	}
	now := time.Now()
	o.Status = ObjectiveCompleted
	o.CurrentCount = o.requirement()
	o.Progress = 1
	o.CompletedAt = &now
}

// ProgressText renders "current/required" for counted objectives and a
// status word for single-step ones.
func (o *Objective) ProgressText() string {
	req := o.requirement()
	if req <= 1 {
		switch o.Status {
		case ObjectiveCompleted:
			return "Done"
		case ObjectiveActive:
			return "In progress"
		default:
			return "Not started"
		}
	}
	cur := o.CurrentCount
	if cur > req {
		cur = req
	}
	return fmt.Sprintf("%d/%d", cur, req)
}

func (o *Objective) requirement() int {
	if o.RequiredCount < 1 {
		return 1
	}
	return o.RequiredCount
}

func (o *Objective) recompute() {
	req := o.requirement()
	cur := o.CurrentCount
	if cur > req {
		cur = req
	}
	o.Progress = float64(cur) / float64(req)
}

func (o *Objective) clone() Objective {
	c := *o
	if o.Conditions != nil {
		c.Conditions = make([]Condition, len(o.Conditions))
		for i, cond := range o.Conditions {
			m := make(Condition, len(cond))
			for k, v := range cond {
				m[k] = v
			}
			c.Conditions[i] = m
		}
	}
	return c
}
