package quest

import (
	"encoding/json"
	"time"
)

// RecordVersion is the current Record schema version.
const RecordVersion = 1

// Record is the flat, persisted form of a Quest.
type Record struct {
	Version               int                    `json:"version"`
	QuestID               string                 `json:"questId"`
	TemplateID            string                 `json:"templateId,omitempty"`
	Title                 string                 `json:"title"`
	Description           string                 `json:"description,omitempty"`
	Type                  Type                   `json:"type"`
	Status                Status                 `json:"status"`
	MissionState          MissionState           `json:"missionState"`
	Objectives            []Objective            `json:"objectives"`
	Participants          []Participant          `json:"participants"`
	Rewards               Rewards                `json:"rewards"`
	FinalRewards          *Rewards               `json:"finalRewards,omitempty"`
	RewardModifier        float64                `json:"rewardModifier"`
	AIContext             map[string]interface{} `json:"aiContext,omitempty"`
	DynamicBranches       []string               `json:"dynamicBranches,omitempty"`
	RelatedNPCs           []string               `json:"relatedNPCs,omitempty"`
	QuestGiverNPC         string                 `json:"questGiverNPC,omitempty"`
	DestinationLocationID string                 `json:"destinationLocationId,omitempty"`
	UnlockLocations       []string               `json:"unlockLocations,omitempty"`
	PartnersUsed          []string               `json:"partnersUsed,omitempty"`
	StartTime             *time.Time             `json:"startTime,omitempty"`
	EndTime               *time.Time             `json:"endTime,omitempty"`
	OfferedAt             *time.Time             `json:"offeredAt,omitempty"`
	AcceptedAt            *time.Time             `json:"acceptedAt,omitempty"`
	CompletedAt           *time.Time             `json:"completedAt,omitempty"`
	ElapsedS              float64                `json:"elapsedS"`
	TimeLimitS            float64                `json:"timeLimitS,omitempty"`
	FailReason            string                 `json:"failReason,omitempty"`
	Progress              float64                `json:"progress"`
}

// Serialize snapshots the quest into a Record. The record shares no mutable
// state with the quest.
func (q *Quest) Serialize() Record {
	r := Record{
		Version:               RecordVersion,
		QuestID:               q.ID,
		TemplateID:            q.TemplateID,
		Title:                 q.Title,
		Description:           q.Description,
		Type:                  q.Type,
		Status:                q.Status,
		MissionState:          q.State,
		Rewards:               cloneRewards(q.Rewards),
		RewardModifier:        q.RewardModifier,
		AIContext:             cloneContext(q.AIContext),
		DynamicBranches:       cloneStrings(q.DynamicBranches),
		RelatedNPCs:           cloneStrings(q.RelatedNPCs),
		QuestGiverNPC:         q.QuestGiverNPC,
		DestinationLocationID: q.DestinationLocationID,
		UnlockLocations:       cloneStrings(q.UnlockLocations),
		PartnersUsed:          cloneStrings(q.PartnersUsed),
		StartTime:             q.StartTime,
		EndTime:               q.EndTime,
		OfferedAt:             q.OfferedAt,
		AcceptedAt:            q.AcceptedAt,
		CompletedAt:           q.CompletedAt,
		ElapsedS:              q.Elapsed.Seconds(),
		TimeLimitS:            q.TimeLimit.Seconds(),
		FailReason:            q.FailReason,
		Progress:              q.Progress(),
	}
	if q.FinalRewards != nil {
		fr := cloneRewards(*q.FinalRewards)
		r.FinalRewards = &fr
	}
	r.Objectives = make([]Objective, len(q.Objectives))
	for i, o := range q.Objectives {
		r.Objectives[i] = o.clone()
	}
	r.Participants = make([]Participant, len(q.Participants))
	for i, p := range q.Participants {
		r.Participants[i] = *p
	}
	return r
}

// Deserialize rebuilds a Quest from a Record. The result has no emitter and
// uses DefaultRewardTuning until the owner attaches its own.
func Deserialize(r Record) *Quest {
	q := New(r.QuestID, r.Title, ParseType(string(r.Type)))
	q.TemplateID = r.TemplateID
	q.Description = r.Description
	q.Status = r.Status
	if q.Status == "" {
		q.Status = StatusPending
	}
	q.State = r.MissionState
	if q.State == "" {
		q.State = missionStateFor(q.Status)
	}
	q.Rewards = cloneRewards(r.Rewards)
	if r.FinalRewards != nil {
		fr := cloneRewards(*r.FinalRewards)
		q.FinalRewards = &fr
	}
	q.RewardModifier = r.RewardModifier
	if q.RewardModifier <= 0 {
		q.RewardModifier = 1
	}
	if r.AIContext != nil {
		q.AIContext = cloneContext(r.AIContext)
	}
	q.DynamicBranches = cloneStrings(r.DynamicBranches)
	q.RelatedNPCs = cloneStrings(r.RelatedNPCs)
	q.QuestGiverNPC = r.QuestGiverNPC
	q.DestinationLocationID = r.DestinationLocationID
	q.UnlockLocations = cloneStrings(r.UnlockLocations)
	q.PartnersUsed = cloneStrings(r.PartnersUsed)
	q.StartTime = r.StartTime
	q.EndTime = r.EndTime
	q.OfferedAt = r.OfferedAt
	q.AcceptedAt = r.AcceptedAt
	q.CompletedAt = r.CompletedAt
	q.Elapsed = time.Duration(r.ElapsedS * float64(time.Second))
	q.TimeLimit = time.Duration(r.TimeLimitS * float64(time.Second))
	q.FailReason = r.FailReason

	q.Objectives = make([]*Objective, 0, len(r.Objectives))
	for i := range r.Objectives {
		o := r.Objectives[i].clone()
		if o.Status == "" {
			o.Status = ObjectivePending
		}
		o.recompute()
		if o.IsCompleted() {
			o.CurrentCount = o.requirement()
			o.Progress = 1
		}
		q.Objectives = append(q.Objectives, &o)
	}
	q.Participants = make([]*Participant, 0, len(r.Participants))
	for i := range r.Participants {
		p := r.Participants[i]
		q.Participants = append(q.Participants, &p)
	}
	return q
}

func missionStateFor(s Status) MissionState {
	switch s {
	case StatusActive:
		return MissionActive
	case StatusCompleted:
		return MissionCompleted
	case StatusFailed:
		return MissionFailed
	}
	return MissionPending
}

// MarshalJSON encodes the quest as its Record.
func (q *Quest) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Serialize())
}

// UnmarshalJSON decodes a Record into the quest, keeping any attached emitter.
func (q *Quest) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	emitter, tuning := q.emitter, q.tuning
	*q = *Deserialize(r)
	q.emitter = emitter
	if tuning != (RewardTuning{}) {
		q.tuning = tuning
	}
	return nil
}

func cloneRewards(r Rewards) Rewards {
	r.Items = cloneStrings(r.Items)
	return r
}

// cloneContext deep-copies the nested maps and slices that JSON decoding
// produces. Other values are copied as is.
func cloneContext(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return cloneContext(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return cloneStrings(x)
	}
	return v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
