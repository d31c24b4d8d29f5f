package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"axiapac.com/punchsync/security"
	"axiapac.com/punchsync/web/common"
)

const IdentityKey = "identity"

// Authentication checks for a valid Bearer token signed with jwtSecret.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing bearer token"))
			return
		}

		claims, err := security.ParseIdentityToken(strings.TrimSpace(parts[1]), jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(IdentityKey, claims.Identity)
		c.Next()
	}
}

// Identity returns the caller set by Authentication.
func Identity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := v.(security.Identity)
	return identity, ok
}
