package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/metrics"
)

const identityKey = "identity"

func bearerToken(c *gin.Context) string {
	authorization := c.GetHeader("Authorization")
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth rejects requests without a valid bearer token and stores the verified
// identity on the request context.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			metrics.AuthFailuresTotal.WithLabelValues("token_missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token missing"})
			return
		}

		identity, err := tokens.Verify(token)
		if err != nil {
			metrics.AuthFailuresTotal.WithLabelValues("token_invalid").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token invalid or expired"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is present. Absence is
// fine and an invalid token is silently ignored; the request proceeds
// unauthenticated either way.
func OptionalAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if identity, err := tokens.Verify(token); err == nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity set by Auth or
// OptionalAuth.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}
