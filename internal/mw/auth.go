package mw

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys written by the login handler and read back here.
const (
	SessionKeyUserID     = "user_id"
	SessionKeyRole       = "role"
	SessionKeyWorkshopID = "workshop_id"
)

const callerContextKey = "caller"

// Caller is the request-scoped identity extracted from the session. It is
// passed into queries explicitly; nothing downstream reads the session.
type Caller struct {
	UserID     int64
	Role       string
	WorkshopID *int64
}

// RequireAuth rejects requests without a logged-in session and injects the
// caller identity into the request context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		userID, ok := sess.Get(SessionKeyUserID).(int64)
		if !ok || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		role, _ := sess.Get(SessionKeyRole).(string)
		caller := Caller{UserID: userID, Role: role}
		if workshopID, ok := sess.Get(SessionKeyWorkshopID).(int64); ok {
			caller.WorkshopID = &workshopID
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// RequireRole allows only callers whose role is in the given set. It must
// run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := roleSet[caller.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

// CallerFrom returns the identity injected by RequireAuth.
func CallerFrom(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}
