package quest

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an event.Emitter that keeps every emission.
type recorder struct {
	names []string
	data  []interface{}
}

func (r *recorder) Emit(_ context.Context, name string, data interface{}) {
	r.names = append(r.names, name)
	r.data = append(r.data, data)
}

func (r *recorder) count(name string) int {
	n := 0
	for _, x := range r.names {
		if x == name {
			n++
		}
	}
	return n
}

func (r *recorder) last(name string) interface{} {
	for i := len(r.names) - 1; i >= 0; i-- {
		if r.names[i] == name {
			return r.data[i]
		}
	}
	return nil
}

func TestMission_StartOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	m := NewMission("m1", "Run", Rewards{Money: 10}, 0)
	m.SetEmitter(rec)
	assert.True(t, m.Start(ctx))
	assert.NotNil(t, m.StartTime)
	assert.False(t, m.Start(ctx))
	assert.Equal(t, 1, rec.count(event.MissionStarted))
}

func TestMission_UpdateFailsOnTimeout(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	m := NewMission("m1", "Run", Rewards{}, 10*time.Second)
	m.SetEmitter(rec)
	m.Start(ctx)

	assert.False(t, m.Update(ctx, 6*time.Second))
	assert.False(t, m.Update(ctx, 4*time.Second)) // exactly at the limit
	assert.True(t, m.Update(ctx, time.Second))
	assert.Equal(t, MissionFailed, m.State)
	assert.Equal(t, ReasonTimeLimit, m.FailReason)

	ev, ok := rec.last(event.MissionFailed).(*FailureEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", ev.MissionID)
	assert.False(t, m.Update(ctx, time.Hour))
}

func TestMission_CompleteAndFailAreTerminal(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	m := NewMission("m1", "Run", Rewards{Money: 10, Exp: 5}, 0)
	m.SetEmitter(rec)
	m.Start(ctx)
	assert.True(t, m.Complete(ctx, CompletionData{}))
	assert.False(t, m.Complete(ctx, CompletionData{}))
	assert.False(t, m.Fail(ctx, "late"))
	assert.Equal(t, 1, rec.count(event.MissionCompleted))

	ev := rec.last(event.MissionCompleted).(*CompletionEvent)
	assert.Equal(t, "standard", ev.CompletionType)
	assert.Equal(t, Rewards{Money: 10, Exp: 5}, ev.Rewards)
}

func TestMission_NilEmitterIsSafe(t *testing.T) {
	m := NewMission("m1", "Run", Rewards{}, 0)
	assert.True(t, m.Start(context.Background()))
	assert.True(t, m.Fail(context.Background(), "x"))
}

func TestCalculateRewards(t *testing.T) {
	cases := []struct {
		name     string
		limit    time.Duration
		elapsed  time.Duration
		partners []string
		modifier float64
		want     Rewards
	}{
		{"no limit", 0, time.Hour, nil, 1, Rewards{Money: 105, Exp: 55}},
		{"fast finish", 100 * time.Second, 40 * time.Second, nil, 1, Rewards{Money: 126, Exp: 66}},
		{"exactly half left", 100 * time.Second, 50 * time.Second, nil, 1, Rewards{Money: 105, Exp: 55}},
		{"partner bonus", 0, 0, []string{"a", "b", "c"}, 1, Rewards{Money: 105, Exp: 60}},
		{"two partners", 0, 0, []string{"a", "b"}, 1, Rewards{Money: 105, Exp: 55}},
		{"everything", 100 * time.Second, 10 * time.Second, []string{"a", "b", "c"}, 1.5, Rewards{Money: 189, Exp: 108}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMission("m", "x", Rewards{Money: 105, Exp: 55}, tc.limit)
			m.Elapsed = tc.elapsed
			m.PartnersUsed = tc.partners
			m.RewardModifier = tc.modifier
			assert.Equal(t, tc.want, m.CalculateRewards())
		})
	}
}

func TestCalculateRewards_CustomTuning(t *testing.T) {
	m := NewMission("m", "x", Rewards{Money: 100, Exp: 100}, 0)
	m.SetRewardTuning(RewardTuning{PartnerBonusPercent: 50, PartnerBonusThreshold: 1})
	m.UsePartner("donnie")
	assert.Equal(t, Rewards{Money: 100, Exp: 150}, m.CalculateRewards())
}

func TestUsePartner_Distinct(t *testing.T) {
	m := NewMission("m", "x", Rewards{}, 0)
	assert.True(t, m.UsePartner("a"))
	assert.False(t, m.UsePartner("a"))
	assert.False(t, m.UsePartner(""))
	assert.Equal(t, []string{"a"}, m.PartnersUsed)
}
