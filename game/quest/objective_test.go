package quest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewObjective_ClampsRequiredCount(t *testing.T) {
	o := NewObjective("o1", ObjectiveTalk, "Talk", 0)
	assert.Equal(t, 1, o.RequiredCount)
	assert.Equal(t, ObjectivePending, o.Status)
}

func TestObjective_ActivateOnlyFromPending(t *testing.T) {
	o := NewObjective("o1", ObjectiveTalk, "Talk", 1)
	assert.True(t, o.Activate())
	assert.False(t, o.Activate())
	o.Complete()
	assert.False(t, o.Activate())
	assert.Equal(t, ObjectiveCompleted, o.Status)
}

func TestObjective_UpdateProgressCompletes(t *testing.T) {
	o := NewObjective("o1", ObjectiveCollect, "Shells", 3)
	o.Activate()

	assert.False(t, o.UpdateProgress(1))
	assert.InDelta(t, 1.0/3, o.Progress, 1e-9)
	assert.Equal(t, "1/3", o.ProgressText())

	assert.False(t, o.UpdateProgress(-5))
	assert.Equal(t, 0, o.CurrentCount)
	assert.Equal(t, 0.0, o.Progress)

	assert.True(t, o.UpdateProgress(7))
	assert.Equal(t, ObjectiveCompleted, o.Status)
	assert.Equal(t, 3, o.CurrentCount)
	assert.Equal(t, 1.0, o.Progress)
	assert.NotNil(t, o.CompletedAt)
}

func TestObjective_MonotonicAfterCompletion(t *testing.T) {
	o := NewObjective("o1", ObjectiveCollect, "Shells", 2)
	o.Activate()
	for _, c := range []int{0, 1, 2, 3, 4} {
		o.UpdateProgress(c)
		cur := c
		if cur > 2 {
			cur = 2
		}
		if o.IsCompleted() {
			assert.Equal(t, 2, o.CurrentCount)
			assert.Equal(t, 1.0, o.Progress)
		} else {
			assert.Equal(t, float64(cur)/2, o.Progress)
		}
	}
	assert.False(t, o.UpdateProgress(0))
	assert.Equal(t, ObjectiveCompleted, o.Status)
	assert.Equal(t, 2, o.CurrentCount)
}

func TestObjective_CompleteIsIdempotent(t *testing.T) {
	o := NewObjective("o1", ObjectiveExplore, "Look", 4)
	o.Complete()
	at := o.CompletedAt
	o.Complete()
	assert.Same(t, at, o.CompletedAt)
	assert.Equal(t, 4, o.CurrentCount)
}

func TestObjective_ProgressTextSingleStep(t *testing.T) {
	o := NewObjective("o1", ObjectiveTalk, "Talk", 1)
	assert.Equal(t, "Not started", o.ProgressText())
	o.Activate()
	assert.Equal(t, "In progress", o.ProgressText())
	o.Complete()
	assert.Equal(t, "Done", o.ProgressText())
}
