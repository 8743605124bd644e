package quest

import (
	"errors"
	"testing"
	"time"

	"github.com/kasuganosora/skyquest/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	flags     map[string]bool
	completed map[string]bool
}

func (w *fakeWorld) HasWorldFlag(f string) bool         { return w.flags[f] }
func (w *fakeWorld) HasCompletedTemplate(id string) bool { return w.completed[id] }

func testStore() *resource.Store {
	s := resource.NewStore("")
	s.AddQuestTemplate(&resource.QuestTemplate{
		ID:          "deliver_package",
		Title:       "Deliver the Package",
		Type:        "main",
		RelatedNPCs: []string{"mayor"},
		TimeLimitS:  120,
		Steps: []resource.QuestStep{
			{ID: "s1", Type: "deliver", RequiredCount: 1, Conditions: []map[string]string{{"item_id": "package_1", "npc_id": "mayor"}}},
			{Type: "Dance", Title: "Celebrate", Optional: true},
		},
		Rewards: resource.TemplateRewards{Currency: 100, Exp: 50, UnlockLocations: []string{"harbor"}},
	})
	s.AddQuestTemplate(&resource.QuestTemplate{
		ID:    "gated",
		Title: "Gated",
		Prerequisites: resource.Prerequisites{
			RequiredWorldFlags:      []string{"bridge_fixed"},
			CompletedQuestTemplates: []string{"deliver_package"},
		},
		Repeatable: true,
	})
	return s
}

func TestObjectiveTypeForStep(t *testing.T) {
	assert.Equal(t, ObjectiveDeliver, ObjectiveTypeForStep("deliver"))
	assert.Equal(t, ObjectiveGoToLocation, ObjectiveTypeForStep(" GoTo "))
	assert.Equal(t, ObjectiveDigRecover, ObjectiveTypeForStep("dig"))
	assert.Equal(t, ObjectiveCustom, ObjectiveTypeForStep("juggle"))
	assert.Equal(t, ObjectiveCustom, ObjectiveTypeForStep(""))
}

func TestCreateFromTemplate(t *testing.T) {
	f := NewFactory(testStore(), nil)
	q, err := f.CreateFromTemplate("deliver_package", CreateOptions{QuestID: "q-1", ActorID: "jett"})
	require.NoError(t, err)

	assert.Equal(t, "q-1", q.ID)
	assert.Equal(t, "deliver_package", q.TemplateID)
	assert.Equal(t, TypeMain, q.Type)
	assert.Equal(t, StatusPending, q.Status)
	assert.Equal(t, Rewards{Money: 100, Exp: 50}, q.Rewards)
	assert.Equal(t, []string{"harbor"}, q.UnlockLocations)
	assert.Equal(t, 2*time.Minute, q.TimeLimit)

	require.Len(t, q.Objectives, 2)
	assert.Equal(t, ObjectiveDeliver, q.Objectives[0].Type)
	assert.Equal(t, ObjectivePending, q.Objectives[0].Status)
	assert.Equal(t, "mayor", q.Objectives[0].Conditions[0]["npc_id"])
	assert.Equal(t, ObjectiveCustom, q.Objectives[1].Type)
	assert.Equal(t, "step_2", q.Objectives[1].ID)
	assert.True(t, q.Objectives[1].Optional)

	require.Len(t, q.Participants, 1)
	assert.Equal(t, "jett", q.Participants[0].CharacterID)
	assert.Equal(t, RoleLeader, q.Participants[0].Role)
}

func TestCreateFromTemplate_GeneratesIDs(t *testing.T) {
	f := NewFactory(testStore(), nil)
	a, err := f.CreateFromTemplate("deliver_package", CreateOptions{})
	require.NoError(t, err)
	b, err := f.CreateFromTemplate("deliver_package", CreateOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Empty(t, a.Participants)
}

func TestCreateFromTemplate_UnknownTemplate(t *testing.T) {
	_, err := NewFactory(testStore(), nil).CreateFromTemplate("nope", CreateOptions{})
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestCreateFromTemplate_Prerequisites(t *testing.T) {
	w := &fakeWorld{flags: map[string]bool{}, completed: map[string]bool{}}
	f := NewFactory(testStore(), w)

	_, err := f.CreateFromTemplate("gated", CreateOptions{})
	assert.ErrorIs(t, err, ErrPrerequisitesUnmet)

	w.flags["bridge_fixed"] = true
	_, err = f.CreateFromTemplate("gated", CreateOptions{})
	assert.ErrorIs(t, err, ErrPrerequisitesUnmet)

	w.completed["deliver_package"] = true
	_, err = f.CreateFromTemplate("gated", CreateOptions{})
	assert.NoError(t, err)
}

func TestCreateFromTemplate_NotRepeatable(t *testing.T) {
	w := &fakeWorld{completed: map[string]bool{"deliver_package": true}}
	f := NewFactory(testStore(), w)
	_, err := f.CreateFromTemplate("deliver_package", CreateOptions{})
	assert.ErrorIs(t, err, ErrNotRepeatable)
	assert.ErrorIs(t, f.CheckTemplate("deliver_package"), ErrNotRepeatable)
}
