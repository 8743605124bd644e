package quest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/skyquest/resource"
)

var (
	ErrTemplateNotFound   = errors.New("quest: template not found")
	ErrPrerequisitesUnmet = errors.New("quest: prerequisites not met")
	ErrNotRepeatable      = errors.New("quest: template not repeatable")
)

// TemplateSource looks up quest templates by id.
type TemplateSource interface {
	QuestTemplate(id string) *resource.QuestTemplate
}

// WorldReader is the read-only view of world state the factory checks
// prerequisites against.
type WorldReader interface {
	HasWorldFlag(flag string) bool
	HasCompletedTemplate(templateID string) bool
}

// stepTypes maps template step type strings to objective types.
var stepTypes = map[string]ObjectiveType{
	"talk":           ObjectiveTalk,
	"talk_to":        ObjectiveTalk,
	"collect":        ObjectiveCollect,
	"deliver":        ObjectiveDeliver,
	"delivery":       ObjectiveDeliver,
	"explore":        ObjectiveExplore,
	"go_to_location": ObjectiveGoToLocation,
	"goto":           ObjectiveGoToLocation,
	"travel":         ObjectiveGoToLocation,
	"fix_build":      ObjectiveFixBuild,
	"fix":            ObjectiveFixBuild,
	"build":          ObjectiveFixBuild,
	"assist":         ObjectiveAssist,
	"help":           ObjectiveAssist,
	"escort":         ObjectiveEscort,
	"investigate":    ObjectiveInvestigate,
	"clear_manage":   ObjectiveClearManage,
	"clear":          ObjectiveClearManage,
	"manage":         ObjectiveClearManage,
	"dig_recover":    ObjectiveDigRecover,
	"dig":            ObjectiveDigRecover,
	"recover":        ObjectiveDigRecover,
	"custom":         ObjectiveCustom,
}

// ObjectiveTypeForStep maps a step type; unknown types become CUSTOM.
func ObjectiveTypeForStep(stepType string) ObjectiveType {
	if t, ok := stepTypes[strings.ToLower(strings.TrimSpace(stepType))]; ok {
		return t
	}
	return ObjectiveCustom
}

// CreateOptions customises a factory-built quest.
type CreateOptions struct {
	QuestID string // generated when empty
	ActorID string // registered as leader when set
}

// Factory builds Quests from templates. It has no side effects.
type Factory struct {
	templates TemplateSource
	world     WorldReader
}

// NewFactory creates a Factory. world may be nil to skip gating checks.
func NewFactory(templates TemplateSource, world WorldReader) *Factory {
	return &Factory{templates: templates, world: world}
}

// CheckTemplate reports why a template cannot be instantiated, or nil.
func (f *Factory) CheckTemplate(templateID string) error {
	_, err := f.lookup(templateID)
	return err
}

func (f *Factory) lookup(templateID string) (*resource.QuestTemplate, error) {
	var tpl *resource.QuestTemplate
	if f.templates != nil {
		tpl = f.templates.QuestTemplate(templateID)
	}
	if tpl == nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}
	if f.world == nil {
		return tpl, nil
	}
	if !tpl.Repeatable && f.world.HasCompletedTemplate(tpl.ID) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepeatable, templateID)
	}
	for _, flag := range tpl.Prerequisites.RequiredWorldFlags {
		if !f.world.HasWorldFlag(flag) {
			return nil, fmt.Errorf("%w: %s needs flag %s", ErrPrerequisitesUnmet, templateID, flag)
		}
	}
	for _, dep := range tpl.Prerequisites.CompletedQuestTemplates {
		if !f.world.HasCompletedTemplate(dep) {
			return nil, fmt.Errorf("%w: %s needs quest %s", ErrPrerequisitesUnmet, templateID, dep)
		}
	}
	return tpl, nil
}

// CreateFromTemplate builds a pending quest whose objectives mirror the
// template steps. Objectives are left pending until the quest is accepted.
func (f *Factory) CreateFromTemplate(templateID string, opts CreateOptions) (*Quest, error) {
	tpl, err := f.lookup(templateID)
	if err != nil {
		return nil, err
	}

	id := opts.QuestID
	if id == "" {
		id = tpl.ID + "-" + uuid.New().String()[:8]
	}
	q := New(id, tpl.Title, ParseType(tpl.Type))
	q.TemplateID = tpl.ID
	q.Description = tpl.Description
	q.DestinationLocationID = tpl.DestinationLocationID
	q.QuestGiverNPC = tpl.QuestGiverNPC
	q.RelatedNPCs = cloneStrings(tpl.RelatedNPCs)
	q.UnlockLocations = cloneStrings(tpl.Rewards.UnlockLocations)
	q.Rewards = Rewards{
		Money: tpl.Rewards.Currency,
		Exp:   tpl.Rewards.Exp,
		Items: cloneStrings(tpl.Rewards.Items),
	}
	if tpl.TimeLimitS > 0 {
		q.TimeLimit = time.Duration(tpl.TimeLimitS) * time.Second
	}

	for i, step := range tpl.Steps {
		stepID := step.ID
		if stepID == "" {
			stepID = fmt.Sprintf("step_%d", i+1)
		}
		o := NewObjective(stepID, ObjectiveTypeForStep(step.Type), step.Title, step.RequiredCount)
		o.Description = step.Description
		o.Optional = step.Optional
		o.AssignedCharacter = step.AssignedCharacter
		for _, c := range step.Conditions {
			cond := make(Condition, len(c))
			for k, v := range c {
				cond[k] = v
			}
			o.Conditions = append(o.Conditions, cond)
		}
		q.Objectives = append(q.Objectives, o)
	}

	if opts.ActorID != "" {
		q.Participants = append(q.Participants, &Participant{
			CharacterID: opts.ActorID,
			Role:        RoleLeader,
			JoinedAt:    time.Now(),
		})
	}
	return q, nil
}
