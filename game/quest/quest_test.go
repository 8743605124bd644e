package quest

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuest(rec *recorder) *Quest {
	q := New("q1", "Deliver", TypeMain)
	q.Rewards = Rewards{Money: 100, Exp: 50}
	q.Objectives = []*Objective{
		NewObjective("a", ObjectiveTalk, "Talk", 1),
		NewObjective("b", ObjectiveCollect, "Collect", 2),
	}
	if rec != nil {
		q.SetEmitter(rec)
	}
	return q
}

func TestQuest_Lifecycle(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	q := newTestQuest(rec)

	assert.False(t, q.Accept(ctx), "accept requires offered")
	require.True(t, q.Offer(ctx))
	assert.NotNil(t, q.OfferedAt)
	assert.False(t, q.Offer(ctx))

	require.True(t, q.Accept(ctx))
	assert.Equal(t, StatusActive, q.Status)
	assert.Equal(t, MissionActive, q.State)
	for _, o := range q.Objectives {
		assert.Equal(t, ObjectiveActive, o.Status)
	}
	assert.Equal(t, []string{
		event.QuestOffered, event.QuestAccepted, event.QuestActivated, event.MissionStarted,
	}, rec.names)

	require.True(t, q.Complete(ctx, CompletionData{AISummary: "well done"}))
	assert.Equal(t, StatusCompleted, q.Status)
	assert.Equal(t, MissionCompleted, q.State)
	require.NotNil(t, q.FinalRewards)
	assert.Equal(t, 100, q.FinalRewards.Money)
	assert.False(t, q.Complete(ctx, CompletionData{}))
	assert.False(t, q.Abandon(ctx))

	ce := rec.last(event.MissionCompleted).(*CompletionEvent)
	assert.Same(t, q, ce.Quest)
	assert.Equal(t, 2, ce.Stats.ObjectivesTotal)
	assert.Equal(t, "well done", ce.AISummary)
	qe := rec.last(event.QuestCompleted).(*QuestEvent)
	assert.Equal(t, 50, qe.Rewards.Exp)
	assert.Equal(t, event.QuestCompleted, rec.names[len(rec.names)-1])
}

func TestQuest_AbandonThenReoffer(t *testing.T) {
	ctx := context.Background()
	q := newTestQuest(nil)
	q.Offer(ctx)
	q.Accept(ctx)
	require.True(t, q.Abandon(ctx))
	assert.False(t, q.Accept(ctx))
	assert.True(t, q.Offer(ctx))
	assert.Equal(t, StatusOffered, q.Status)
}

func TestQuest_UpdateTimesOut(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	q := newTestQuest(rec)
	q.TimeLimit = 30 * time.Second
	assert.False(t, q.Update(ctx, time.Hour), "inactive quests do not tick")
	q.Offer(ctx)
	q.Accept(ctx)
	assert.False(t, q.Update(ctx, 20*time.Second))
	assert.True(t, q.Update(ctx, 20*time.Second))
	assert.Equal(t, StatusFailed, q.Status)
	assert.Equal(t, MissionFailed, q.State)
	fe := rec.last(event.MissionFailed).(*FailureEvent)
	assert.Same(t, q, fe.Quest)
	assert.Equal(t, ReasonTimeLimit, fe.Reason)
}

func TestQuest_AddParticipantIdempotent(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	q := newTestQuest(rec)
	p, added := q.AddParticipant(ctx, "jett", RoleLeader)
	require.True(t, added)
	again, added := q.AddParticipant(ctx, "jett", RoleSupport)
	assert.False(t, added)
	assert.Same(t, p, again)
	assert.Equal(t, RoleLeader, again.Role)
	assert.Equal(t, "jett", q.Leader())
	assert.Equal(t, 1, rec.count(event.QuestParticipantAdded))
}

func TestQuest_RecordContributionCapped(t *testing.T) {
	ctx := context.Background()
	q := newTestQuest(nil)
	for i := 0; i < 10; i++ {
		q.RecordContribution(ctx, "donnie", ContributionDeliver)
	}
	p := q.Participant("donnie")
	require.NotNil(t, p)
	assert.Equal(t, RoleSupport, p.Role)
	assert.Equal(t, 1.0, p.Contribution)

	got := q.RecordContribution(ctx, "paul", "unheard_of")
	assert.InDelta(t, ContributionWeights["default"], got, 1e-9)
}

func TestQuest_CreditObjective(t *testing.T) {
	ctx := context.Background()
	q := newTestQuest(nil)
	o := q.Objectives[0]
	q.CreditObjective(ctx, "jett", o)
	assert.Equal(t, "jett", o.CompletedBy)
	assert.Equal(t, 1, q.Participant("jett").ObjectivesCompleted)
}

func TestQuest_AddDynamicObjective(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	q := newTestQuest(rec)
	q.Offer(ctx)
	q.Accept(ctx)

	o := NewObjective("dyn1", ObjectiveInvestigate, "Look closer", 1)
	o.AIReasoning = "the mayor mentioned a noise"
	require.True(t, q.AddDynamicObjective(ctx, o))
	assert.True(t, o.IsDynamic)
	assert.True(t, o.AIGenerated)
	assert.Equal(t, ObjectiveActive, o.Status)
	assert.Equal(t, []string{"dyn1"}, q.DynamicBranches)
	assert.Equal(t, 1, rec.count(event.QuestObjectiveAdded))

	assert.False(t, q.AddDynamicObjective(ctx, NewObjective("dyn1", ObjectiveCustom, "dup", 1)))
	assert.False(t, q.AddDynamicObjective(ctx, nil))
}

func TestQuest_ObjectiveQueries(t *testing.T) {
	ctx := context.Background()
	q := newTestQuest(nil)
	assert.Nil(t, q.ActiveObjective())
	q.Offer(ctx)
	q.Accept(ctx)
	assert.Equal(t, "a", q.ActiveObjective().ID)
	q.Objectives[0].Complete()
	assert.Equal(t, "b", q.ActiveObjective().ID)
	pending := q.PendingObjectives()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
	assert.Nil(t, q.Objective("zzz"))
}

func TestQuest_RequiredObjectivesDone(t *testing.T) {
	q := New("q", "x", TypeSub)
	assert.False(t, q.RequiredObjectivesDone(), "no objectives never completes")

	req := NewObjective("r", ObjectiveTalk, "r", 1)
	opt := NewObjective("o", ObjectiveTalk, "o", 1)
	opt.Optional = true
	q.Objectives = []*Objective{req, opt}
	assert.False(t, q.RequiredObjectivesDone())
	req.Complete()
	assert.True(t, q.RequiredObjectivesDone())
	assert.Equal(t, 1.0, q.Progress())

	onlyOptional := New("q2", "x", TypeSub)
	o2 := NewObjective("o", ObjectiveTalk, "o", 1)
	o2.Optional = true
	o2.Complete()
	onlyOptional.Objectives = []*Objective{o2}
	assert.False(t, onlyOptional.RequiredObjectivesDone())
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeMain, ParseType("main"))
	assert.Equal(t, TypeDynamic, ParseType("dynamic"))
	assert.Equal(t, TypeSub, ParseType(""))
	assert.Equal(t, TypeSub, ParseType("epic"))
}
