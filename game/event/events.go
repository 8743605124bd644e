package event

import "context"

// Gameplay events consumed by the quest runtime.
const (
	NPCInteraction       = "NPC_INTERACTION"
	DialogueEnd          = "DIALOGUE_END"
	ItemCollected        = "ITEM_COLLECTED"
	DeliverItem          = "DELIVER_ITEM"
	AreaExplored         = "AREA_EXPLORED"
	LocationDiscovered   = "LOCATION_DISCOVERED"
	LocationEntered      = "LOCATION_ENTERED"
	BuildingEntered      = "BUILDING_ENTERED"
	BuildingExited       = "BUILDING_EXITED"
	PartnerSummoned      = "PARTNER_SUMMONED"
	CompanionCalled      = "COMPANION_CALLED"
	CompanionAbilityUsed = "COMPANION_ABILITY_USED"
	CharacterSwitched    = "CHARACTER_SWITCHED"
	CustomAction         = "CUSTOM_ACTION"
	PortalEntered        = "PORTAL_ENTERED"
)

// Quest lifecycle and runtime events.
const (
	QuestOffered             = "QUEST_OFFERED"
	QuestAccepted            = "QUEST_ACCEPTED"
	QuestActivated           = "QUEST_ACTIVATED"
	QuestAbandoned           = "QUEST_ABANDONED"
	QuestCompleted           = "QUEST_COMPLETED"
	QuestParticipantAdded    = "QUEST_PARTICIPANT_ADDED"
	QuestObjectiveAdded      = "QUEST_OBJECTIVE_ADDED"
	MissionStarted           = "MISSION_STARTED"
	MissionCompleted         = "MISSION_COMPLETED"
	MissionFailed            = "MISSION_FAILED"
	MissionRecordCreated     = "MISSION_RECORD_CREATED"
	MissionStateChanged      = "MISSION_STATE_CHANGED"
	MissionStateLog          = "MISSION_STATE_LOG"
	ObjectiveProgressUpdated = "OBJECTIVE_PROGRESS_UPDATED"
	QuestProgressUpdated     = "QUEST_PROGRESS_UPDATED"
	WorldStateChanged        = "WORLD_STATE_CHANGED"
	CompanionsReset          = "COMPANIONS_RESET"
	MissionManagerReady      = "MISSION_MANAGER_READY"
)

// GameplayEvents lists the events a client may inject through the REST and
// WebSocket surfaces.
var GameplayEvents = []string{
	NPCInteraction, DialogueEnd, ItemCollected, DeliverItem, AreaExplored,
	LocationDiscovered, LocationEntered, BuildingEntered, BuildingExited,
	PartnerSummoned, CompanionCalled, CompanionAbilityUsed, CharacterSwitched,
	CustomAction, PortalEntered,
}

// BroadcastEvents are forwarded to UI subscribers by the Bridge.
var BroadcastEvents = []string{
	QuestOffered, QuestAccepted, QuestAbandoned, QuestCompleted,
	QuestObjectiveAdded, MissionStarted, MissionCompleted, MissionFailed,
	MissionStateChanged, ObjectiveProgressUpdated, QuestProgressUpdated,
	WorldStateChanged, CompanionCalled, CompanionAbilityUsed, CompanionsReset,
}

// IsGameplayEvent reports whether name is in GameplayEvents.
func IsGameplayEvent(name string) bool {
	for _, n := range GameplayEvents {
		if n == name {
			return true
		}
	}
	return false
}

// Emitter is the publishing half of Bus.
type Emitter interface {
	Emit(ctx context.Context, name string, data interface{})
}
