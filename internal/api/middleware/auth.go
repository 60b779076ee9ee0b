package middleware

import (
	"net/http"
	"strings"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxOracleID = "oracleID"
)

// ──────────────────────────────────────────────────────────────────────────────
// OracleAuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// OracleAuthMiddleware validates the Bearer token in the Authorization header
// against the configured oracle identity. On success it stores the oracle id
// (string) in the gin context. Every write endpoint of the oracle group sits
// behind this middleware.
func OracleAuthMiddleware(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims, err := tokens.ParseOracleToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrTokenInvalid.Error(),
			})
			return
		}

		c.Set(CtxOracleID, claims.Subject)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper — extract oracle identity from context (for use in handlers)
// ──────────────────────────────────────────────────────────────────────────────

// GetOracleID retrieves the authenticated oracle identity from the gin
// context. Returns "" if the middleware was not applied.
func GetOracleID(c *gin.Context) string {
	v, exists := c.Get(CtxOracleID)
	if !exists {
		return ""
	}
	id, _ := v.(string)
	return id
}
