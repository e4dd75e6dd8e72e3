// README: Bearer-token auth middleware; puts the caller's uid and role on the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"masar/internal/infra"
	"masar/internal/types"
)

const (
	ctxCallerUID  = "callerUID"
	ctxCallerRole = "callerRole"
)

// Auth rejects requests without a valid bearer token. A missing role claim
// means shipper; an unknown role is forbidden.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, ok := types.ParseRole(token.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown role"})
			return
		}
		c.Set(ctxCallerUID, token.UID)
		c.Set(ctxCallerRole, role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller has one of roles.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerRole(c)
		for _, r := range roles {
			if caller == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxCallerUID)
}

func CallerRole(c *gin.Context) types.Role {
	if v, ok := c.Get(ctxCallerRole); ok {
		if r, ok := v.(types.Role); ok {
			return r
		}
	}
	return ""
}

// Caller is the authenticated actor for service commands.
func Caller(c *gin.Context) types.Actor {
	return types.Actor{ID: types.ID(CallerUID(c)), Role: CallerRole(c)}
}
