package quest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEquivalent(t *testing.T, want, got *Quest) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.TemplateID, got.TemplateID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.State, got.State)
	require.Len(t, got.Objectives, len(want.Objectives))
	for i := range want.Objectives {
		assert.Equal(t, want.Objectives[i].ID, got.Objectives[i].ID)
		assert.Equal(t, want.Objectives[i].Status, got.Objectives[i].Status)
		assert.Equal(t, want.Objectives[i].CurrentCount, got.Objectives[i].CurrentCount)
		assert.Equal(t, want.Objectives[i].Conditions, got.Objectives[i].Conditions)
	}
	require.Len(t, got.Participants, len(want.Participants))
	for i := range want.Participants {
		assert.Equal(t, want.Participants[i].CharacterID, got.Participants[i].CharacterID)
		assert.Equal(t, want.Participants[i].Role, got.Participants[i].Role)
		assert.Equal(t, want.Participants[i].Contribution, got.Participants[i].Contribution)
	}
}

func TestSerialize_RoundTripEveryStatus(t *testing.T) {
	ctx := context.Background()
	build := func() *Quest {
		q := New("q1", "Deliver", TypeMain)
		q.TemplateID = "deliver_package"
		o := NewObjective("s1", ObjectiveCollect, "Collect", 3)
		o.Conditions = []Condition{{"item_id": "shell"}}
		q.Objectives = []*Objective{o, NewObjective("s2", ObjectiveTalk, "Talk", 1)}
		q.AddParticipant(ctx, "jett", RoleLeader)
		q.TimeLimit = time.Minute
		return q
	}

	steps := map[string]func(q *Quest){
		"pending": func(q *Quest) {},
		"offered": func(q *Quest) { q.Offer(ctx) },
		"mid-progress": func(q *Quest) {
			q.Offer(ctx)
			q.Accept(ctx)
			q.Objectives[0].UpdateProgress(2)
			q.RecordContribution(ctx, "donnie", ContributionAssist)
			q.Update(ctx, 10*time.Second)
		},
		"completed": func(q *Quest) {
			q.Offer(ctx)
			q.Accept(ctx)
			q.Objectives[0].Complete()
			q.Complete(ctx, CompletionData{})
		},
		"abandoned": func(q *Quest) { q.Offer(ctx); q.Abandon(ctx) },
		"failed":    func(q *Quest) { q.Offer(ctx); q.Accept(ctx); q.Update(ctx, 2*time.Minute) },
	}

	for name, step := range steps {
		t.Run(name, func(t *testing.T) {
			q := build()
			step(q)
			back := Deserialize(q.Serialize())
			assertEquivalent(t, q, back)
			assert.Equal(t, q.Elapsed, back.Elapsed)
			assert.Equal(t, q.TimeLimit, back.TimeLimit)
			assert.Equal(t, q.FinalRewards, back.FinalRewards)
		})
	}
}

func TestSerialize_DoesNotAlias(t *testing.T) {
	q := New("q1", "x", TypeSub)
	q.Objectives = []*Objective{NewObjective("a", ObjectiveTalk, "a", 2)}
	r := q.Serialize()
	q.Objectives[0].UpdateProgress(1)
	assert.Equal(t, 0, r.Objectives[0].CurrentCount)
}

func TestSerialize_AIContextIsCopied(t *testing.T) {
	q := New("q1", "x", TypeSub)
	q.AIContext["history"] = []interface{}{"hello"}
	q.AIContext["memory"] = map[string]interface{}{"mood": "happy"}
	r := q.Serialize()

	q.AIContext["sessionId"] = "rag-2"
	q.AIContext["memory"].(map[string]interface{})["mood"] = "sleepy"
	q.AIContext["history"].([]interface{})[0] = "bye"
	assert.NotContains(t, r.AIContext, "sessionId")
	assert.Equal(t, "happy", r.AIContext["memory"].(map[string]interface{})["mood"])
	assert.Equal(t, "hello", r.AIContext["history"].([]interface{})[0])

	back := Deserialize(r)
	r.AIContext["memory"].(map[string]interface{})["mood"] = "grumpy"
	assert.Equal(t, "happy", back.AIContext["memory"].(map[string]interface{})["mood"])
}

func TestQuest_JSONRoundTrip(t *testing.T) {
	q := New("q1", "Deliver", TypeSide)
	q.Objectives = []*Objective{NewObjective("a", ObjectiveDeliver, "a", 1)}
	q.AIContext["sessionId"] = "rag-1"

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"questId":"q1"`)

	var back Quest
	require.NoError(t, json.Unmarshal(data, &back))
	assertEquivalent(t, q, &back)
	assert.Equal(t, "rag-1", back.AIContext["sessionId"])
	assert.Equal(t, DefaultRewardTuning, back.RewardTuning())
}

func TestDeserialize_Defaults(t *testing.T) {
	q := Deserialize(Record{QuestID: "legacy", Objectives: []Objective{{ID: "x", RequiredCount: 2, Status: ObjectiveCompleted}}})
	assert.Equal(t, StatusPending, q.Status)
	assert.Equal(t, MissionPending, q.State)
	assert.Equal(t, TypeSub, q.Type)
	assert.Equal(t, 1.0, q.RewardModifier)
	assert.Equal(t, 2, q.Objectives[0].CurrentCount)
	assert.Equal(t, 1.0, q.Objectives[0].Progress)
}
