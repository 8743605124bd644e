package resource

// ---- Quest templates ----

// QuestStep is one declarative step of a quest template.
type QuestStep struct {
	ID                string              `json:"id" yaml:"id"`
	Type              string              `json:"type" yaml:"type"`
	Title             string              `json:"title" yaml:"title"`
	Description       string              `json:"description,omitempty" yaml:"description"`
	RequiredCount     int                 `json:"requiredCount" yaml:"requiredCount"`
	Conditions        []map[string]string `json:"conditions,omitempty" yaml:"conditions"`
	Optional          bool                `json:"optional,omitempty" yaml:"optional"`
	AssignedCharacter string              `json:"assignedCharacter,omitempty" yaml:"assignedCharacter"`
}

// TemplateRewards is the base reward granted by a template.
type TemplateRewards struct {
	Currency        int      `json:"currency" yaml:"currency"`
	Exp             int      `json:"exp" yaml:"exp"`
	Items           []string `json:"items,omitempty" yaml:"items"`
	UnlockLocations []string `json:"unlockLocations,omitempty" yaml:"unlockLocations"`
}

// Prerequisites gate template instantiation on world state.
type Prerequisites struct {
	RequiredWorldFlags      []string `json:"requiredWorldFlags,omitempty" yaml:"requiredWorldFlags"`
	CompletedQuestTemplates []string `json:"completedQuestTemplates,omitempty" yaml:"completedQuestTemplates"`
}

// QuestTemplate is an immutable blueprint for quest instances.
type QuestTemplate struct {
	ID                    string          `json:"templateId" yaml:"templateId"`
	Title                 string          `json:"title" yaml:"title"`
	Description           string          `json:"description" yaml:"description"`
	Type                  string          `json:"type" yaml:"type"` // main | sub | side | dynamic
	DestinationLocationID string          `json:"destinationLocationId,omitempty" yaml:"destinationLocationId"`
	Repeatable            bool            `json:"repeatable" yaml:"repeatable"`
	Steps                 []QuestStep     `json:"steps" yaml:"steps"`
	Rewards               TemplateRewards `json:"rewards" yaml:"rewards"`
	Prerequisites         Prerequisites   `json:"prerequisites" yaml:"prerequisites"`
	QuestGiverNPC         string          `json:"questGiverNpc,omitempty" yaml:"questGiverNpc"`
	RelatedNPCs           []string        `json:"relatedNpcs,omitempty" yaml:"relatedNpcs"`
	TimeLimitS            int             `json:"timeLimitS,omitempty" yaml:"timeLimitS"`
}

// ---- World content ----

type NPC struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	LocationID string `json:"locationId,omitempty" yaml:"locationId"`
	Role       string `json:"role,omitempty" yaml:"role"`
	DialogueID string `json:"dialogueId,omitempty" yaml:"dialogueId"`
}

// Companion is an unlockable ally. A companion becomes unlockable once every
// UnlockFlags entry is set and every UnlockQuests template is completed.
type Companion struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Abilities    []string `json:"abilities" yaml:"abilities"`
	UnlockFlags  []string `json:"unlockFlags,omitempty" yaml:"unlockFlags"`
	UnlockQuests []string `json:"unlockQuests,omitempty" yaml:"unlockQuests"`
	Starter      bool     `json:"starter,omitempty" yaml:"starter"`
}

type Location struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Region      string   `json:"region,omitempty" yaml:"region"`
	Buildings   []string `json:"buildings,omitempty" yaml:"buildings"`
	StartUnlock bool     `json:"startUnlocked,omitempty" yaml:"startUnlocked"`
}

// DialogueLine is one line of a scripted conversation.
type DialogueLine struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
}

type Dialogue struct {
	ID    string         `json:"id" yaml:"id"`
	NPCID string         `json:"npcId,omitempty" yaml:"npcId"`
	Lines []DialogueLine `json:"lines" yaml:"lines"`
}
