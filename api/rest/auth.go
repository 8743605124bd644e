// Package rest serves the JSON API used by the game's UI panels.
package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/skyquest/audit"
	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/config"
	mw "github.com/kasuganosora/skyquest/middleware"
	"github.com/kasuganosora/skyquest/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler signs profiles in and out.
type AuthHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	sec    config.SecurityConfig
	audit  *audit.Service
	defChr string
}

// NewAuthHandler creates an AuthHandler. auditSvc may be nil.
func NewAuthHandler(db *gorm.DB, c cache.Cache, sec config.SecurityConfig, auditSvc *audit.Service, defaultCharacter string) *AuthHandler {
	return &AuthHandler{db: db, cache: c, sec: sec, audit: auditSvc, defChr: defaultCharacter}
}

type loginRequest struct {
	Profile   string `json:"profile" binding:"required,min=2,max=32"`
	PIN       string `json:"pin" binding:"required,numeric,min=4,max=8"`
	Character string `json:"character" binding:"max=32"`
}

// Login handles POST /api/auth/login. A profile name seen for the first
// time is registered with the given PIN.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var acc model.Account
	err := h.db.Where("profile_name = ?", req.Profile).First(&acc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		acc = model.Account{ProfileName: req.Profile, PINHash: string(hash), Character: h.defChr, Status: 1}
		if createErr := h.db.Create(&acc).Error; createErr != nil {
			if isUniqueViolation(createErr) {
				c.JSON(http.StatusConflict, gin.H{"error": "profile already taken"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			}
			return
		}
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(acc.PINHash), []byte(req.PIN)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong PIN"})
			return
		}
		if acc.Status == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "profile disabled"})
			return
		}
	}

	character := acc.Character
	if req.Character != "" {
		character = req.Character
	}
	token, err := mw.GenerateToken(mw.Identity{AccountID: acc.ID, Profile: acc.ProfileName, Character: character},
		h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	now := time.Now()
	_ = h.db.Model(&acc).Updates(map[string]interface{}{
		"last_login_at": now,
		"last_login_ip": c.ClientIP(),
		"character":     character,
	})
	if h.audit != nil {
		h.audit.Log(audit.Entry{TraceID: mw.GetTraceID(c), AccountID: &acc.ID, Action: audit.ActionLogin, IP: c.ClientIP()})
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"account_id": acc.ID,
		"character":  character,
	})
}

// Logout handles POST /api/auth/logout by revoking the token until it
// would have expired anyway.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr := c.GetString(mw.TokenKey)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.RevokedKey(tokenStr), "1", h.sec.JWTTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	if h.audit != nil {
		id := mw.GetAccountID(c)
		h.audit.Log(audit.Entry{TraceID: mw.GetTraceID(c), AccountID: &id, Action: audit.ActionLogout, IP: c.ClientIP()})
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
