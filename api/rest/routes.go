package rest

import "github.com/gin-gonic/gin"

// Routes mounts every endpoint under api. auth guards everything except
// login and admin guards the reset endpoint.
func Routes(api *gin.RouterGroup, auth, admin gin.HandlerFunc, ah *AuthHandler, gh *GameHandler) {
	api.POST("/auth/login", ah.Login)

	authed := api.Group("", auth)
	authed.POST("/auth/logout", ah.Logout)

	authed.GET("/quests", gh.ListQuests)
	authed.GET("/quests/active", gh.ActiveQuests)
	authed.POST("/quests/offer", gh.OfferQuest)
	authed.GET("/quests/:id", gh.GetQuest)
	authed.POST("/quests/:id/accept", gh.AcceptQuest)
	authed.POST("/quests/:id/abandon", gh.AbandonQuest)
	authed.POST("/quests/:id/decline", gh.DeclineQuest)
	authed.POST("/quests/:id/objectives", gh.AddObjective)

	authed.POST("/events", gh.EmitEvent)
	authed.GET("/world", gh.World)

	authed.GET("/companions", gh.Companions)
	authed.POST("/companions/dismiss", gh.DismissCompanion)
	authed.POST("/companions/:id/call", gh.CallCompanion)
	authed.POST("/companions/:id/select", gh.SelectCompanion)

	authed.GET("/missions/log", gh.MissionLog)

	api.POST("/admin/reset", admin, gh.Reset)
}
