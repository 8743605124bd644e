package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/skyquest/game/companion"
	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/mission"
	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/kasuganosora/skyquest/game/runtime"
	mw "github.com/kasuganosora/skyquest/middleware"
)

// GameHandler exposes the quest runtime to UI panels.
type GameHandler struct {
	rt *runtime.Runtime
}

func NewGameHandler(rt *runtime.Runtime) *GameHandler {
	return &GameHandler{rt: rt}
}

// statusFor maps runtime errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mission.ErrQuestNotFound),
		errors.Is(err, quest.ErrTemplateNotFound),
		errors.Is(err, companion.ErrCompanionNotFound):
		return http.StatusNotFound
	case errors.Is(err, quest.ErrPrerequisitesUnmet),
		errors.Is(err, quest.ErrNotRepeatable),
		errors.Is(err, companion.ErrLocked):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// character is the acting character: the one picked at sign-in, else the
// runtime's current main character.
func (h *GameHandler) character(c *gin.Context) string {
	if chr := mw.GetCharacter(c); chr != "" {
		return chr
	}
	return h.rt.Missions.MainCharacter()
}

// ListQuests handles GET /api/quests.
func (h *GameHandler) ListQuests(c *gin.Context) {
	h.rt.Do(func() error {
		c.JSON(http.StatusOK, gin.H{
			"quests":    h.rt.Missions.Quests(),
			"records":   h.rt.Missions.Records(),
			"completed": h.rt.Missions.CompletedQuestIDs(),
			"abandoned": h.rt.Missions.AbandonedQuestIDs(),
			"failed":    h.rt.Missions.FailedQuestIDs(),
		})
		return nil
	})
}

// ActiveQuests handles GET /api/quests/active.
func (h *GameHandler) ActiveQuests(c *gin.Context) {
	h.rt.Do(func() error {
		c.JSON(http.StatusOK, gin.H{
			"main":    h.rt.Missions.ActiveMainQuest(),
			"subs":    h.rt.Missions.ActiveSubQuests(),
			"offered": h.rt.Missions.OfferedQuests(),
		})
		return nil
	})
}

// GetQuest handles GET /api/quests/:id.
func (h *GameHandler) GetQuest(c *gin.Context) {
	h.rt.Do(func() error {
		q := h.rt.Missions.Quest(c.Param("id"))
		if q == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
			return nil
		}
		c.JSON(http.StatusOK, q)
		return nil
	})
}

type offerRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
	Type       string `json:"type"`
}

// OfferQuest handles POST /api/quests/offer.
func (h *GameHandler) OfferQuest(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var typ quest.Type
	if req.Type != "" {
		typ = quest.ParseType(req.Type)
	}
	q, ok, err := h.rt.OfferTemplate(c.Request.Context(), req.TemplateID, h.character(c), typ)
	if err != nil {
		fail(c, err)
		return
	}
	h.rt.Do(func() error {
		c.JSON(http.StatusOK, gin.H{"quest": q, "changed": ok})
		return nil
	})
}

type acceptRequest struct {
	Type string `json:"type"`
}

// AcceptQuest handles POST /api/quests/:id/accept.
func (h *GameHandler) AcceptQuest(c *gin.Context) {
	var req acceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	opts := mission.AcceptOptions{ActorID: h.character(c)}
	if req.Type != "" {
		opts.Type = quest.ParseType(req.Type)
	}
	h.rt.Do(func() error {
		q, ok, err := h.rt.Missions.AcceptQuest(c.Request.Context(), c.Param("id"), opts)
		if err != nil {
			fail(c, err)
			return nil
		}
		c.JSON(http.StatusOK, gin.H{"quest": q, "changed": ok})
		return nil
	})
}

// AbandonQuest handles POST /api/quests/:id/abandon.
func (h *GameHandler) AbandonQuest(c *gin.Context) {
	h.lifecycle(c, h.rt.Missions.AbandonQuest)
}

// DeclineQuest handles POST /api/quests/:id/decline.
func (h *GameHandler) DeclineQuest(c *gin.Context) {
	h.lifecycle(c, h.rt.Missions.DeclineQuest)
}

func (h *GameHandler) lifecycle(c *gin.Context, op func(ctx context.Context, id string) (bool, error)) {
	id := c.Param("id")
	h.rt.Do(func() error {
		ok, err := op(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return nil
		}
		c.JSON(http.StatusOK, gin.H{"quest": h.rt.Missions.Quest(id), "changed": ok})
		return nil
	})
}

type objectiveRequest struct {
	ID            string            `json:"id" binding:"required"`
	Type          string            `json:"type" binding:"required"`
	Title         string            `json:"title"`
	RequiredCount int               `json:"requiredCount"`
	Conditions    []quest.Condition `json:"conditions"`
	Optional      bool              `json:"optional"`
	Reasoning     string            `json:"reasoning"`
}

// AddObjective handles POST /api/quests/:id/objectives with a generated
// objective.
func (h *GameHandler) AddObjective(c *gin.Context) {
	var req objectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o := quest.NewObjective(req.ID, quest.ObjectiveTypeForStep(req.Type), req.Title, req.RequiredCount)
	o.Conditions = req.Conditions
	o.Optional = req.Optional
	o.AIReasoning = req.Reasoning
	h.rt.Do(func() error {
		ok, err := h.rt.Missions.AddDynamicObjective(c.Request.Context(), c.Param("id"), o)
		if err != nil {
			fail(c, err)
			return nil
		}
		c.JSON(http.StatusOK, gin.H{"quest": h.rt.Missions.Quest(c.Param("id")), "changed": ok})
		return nil
	})
}

type eventRequest struct {
	Type    string        `json:"type" binding:"required"`
	Payload event.Payload `json:"payload"`
}

// EmitEvent handles POST /api/events. Only gameplay events are accepted.
func (h *GameHandler) EmitEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !event.IsGameplayEvent(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}
	if req.Payload == nil {
		req.Payload = event.Payload{}
	}
	if _, ok := req.Payload["character"]; !ok {
		req.Payload["character"] = h.character(c)
	}
	h.rt.Emit(c.Request.Context(), req.Type, req.Payload)
	c.JSON(http.StatusAccepted, gin.H{"type": req.Type})
}

// World handles GET /api/world.
func (h *GameHandler) World(c *gin.Context) {
	h.rt.Do(func() error {
		c.JSON(http.StatusOK, h.rt.World.Snapshot())
		return nil
	})
}

// Companions handles GET /api/companions.
func (h *GameHandler) Companions(c *gin.Context) {
	h.rt.Do(func() error {
		c.JSON(http.StatusOK, gin.H{
			"companions": h.rt.Companions.Companions(),
			"abilities":  h.rt.Companions.AvailableAbilities(),
			"active":     h.rt.Companions.Active(),
			"selected":   h.rt.Companions.Selected(),
		})
		return nil
	})
}

// CallCompanion handles POST /api/companions/:id/call.
func (h *GameHandler) CallCompanion(c *gin.Context) {
	h.rt.Do(func() error {
		if err := h.rt.Companions.Call(c.Request.Context(), c.Param("id"), h.character(c)); err != nil {
			fail(c, err)
			return nil
		}
		c.JSON(http.StatusOK, gin.H{"active": h.rt.Companions.Active()})
		return nil
	})
}

// SelectCompanion handles POST /api/companions/:id/select.
func (h *GameHandler) SelectCompanion(c *gin.Context) {
	h.rt.Do(func() error {
		if err := h.rt.Companions.Select(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return nil
		}
		c.JSON(http.StatusOK, gin.H{"selected": h.rt.Companions.Selected()})
		return nil
	})
}

// DismissCompanion handles POST /api/companions/dismiss.
func (h *GameHandler) DismissCompanion(c *gin.Context) {
	h.rt.Do(func() error {
		ok := h.rt.Companions.Dismiss(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"changed": ok})
		return nil
	})
}

// MissionLog handles GET /api/missions/log.
func (h *GameHandler) MissionLog(c *gin.Context) {
	h.rt.Do(func() error {
		c.JSON(http.StatusOK, gin.H{
			"stateLog":     h.rt.Missions.StateLog(),
			"recentEvents": h.rt.Missions.RecentEvents(),
		})
		return nil
	})
}

// Reset handles POST /api/admin/reset.
func (h *GameHandler) Reset(c *gin.Context) {
	h.rt.Reset(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "reset"})
}
