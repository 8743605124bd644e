package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/config"
)

const (
	AccountIDKey = "account_id"
	CharacterKey = "character"
	ProfileKey   = "profile"
	TokenKey     = "token"
)

// RevokedKey is the cache key marking a signed-out token.
func RevokedKey(token string) string { return "revoked:" + token }

// TokenFromRequest reads a Bearer token, falling back to the token query
// parameter used by WebSocket and SSE clients.
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the JWT and rejects tokens revoked by logout.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := TokenFromRequest(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		revoked, err := c.Exists(cacheCtx, RevokedKey(tokenStr))
		if err != nil || revoked {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(AccountIDKey, claims.AccountID)
		ctx.Set(ProfileKey, claims.Profile)
		ctx.Set(CharacterKey, claims.Character)
		ctx.Set(TokenKey, tokenStr)
		ctx.Next()
	}
}

// GetAccountID returns the authenticated account id, or 0.
func GetAccountID(c *gin.Context) int64 {
	return c.GetInt64(AccountIDKey)
}

// GetCharacter returns the character chosen at sign-in, or "".
func GetCharacter(c *gin.Context) string {
	return c.GetString(CharacterKey)
}
