// README: Identity middleware; trusts upstream-authenticated actor headers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

// Authentication happens at the gateway in front of this service. It
// forwards the verified identity in these headers.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

const actorKey = "actor"

// Identity reads the forwarded actor headers into the request context.
// Requests without them are rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderActorID)
		role := c.GetHeader(HeaderActorRole)
		if id == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
			return
		}
		c.Set(actorKey, order.Actor{Type: role, ID: types.ID(id)})
		c.Next()
	}
}

// RequireRole rejects actors whose role is not in the allowed set.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		for _, r := range roles {
			if actor.Type == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// Actor returns the actor set by Identity. Zero value if the middleware
// did not run.
func Actor(c *gin.Context) order.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return order.Actor{}
	}
	actor, _ := v.(order.Actor)
	return actor
}
