package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const (
	actorContextKey   = "rentals.actor"
	actorHeader       = "X-User-ID"
	idempotencyHeader = "Idempotency-Key"
)

// actor is the user a request acts for. Identity is asserted by the gateway
// in front of this service.
type actor struct {
	ID string
}

// ActorMiddleware reads the acting user from the X-User-ID header. Requests
// without one pass through anonymously.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(actorHeader)); id != "" {
			c.Set(actorContextKey, actor{ID: id})
		}
		c.Next()
	}
}

func currentActor(c *gin.Context) (actor, bool) {
	val, exists := c.Get(actorContextKey)
	if !exists {
		return actor{}, false
	}
	a, ok := val.(actor)
	return a, ok
}

func requireActor(c *gin.Context) (actor, bool) {
	a, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "acting user required"))
		return actor{}, false
	}
	return a, true
}
