package middleware

import (
	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie that carries the opaque session token.
const SessionCookie = "mediagrab_session"

// sessionKey is where the resolved session id is stashed on the context.
const sessionKey = "sessionID"

// Registry is the part of the session registry the middleware needs.
type Registry interface {
	GetOrCreate(token string) string
}

// Session resolves the caller's session, minting a token on first contact
// and reissuing the cookie so the browser keeps it.
func Session(registry Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(SessionCookie)
		sessionID := registry.GetOrCreate(token)
		if sessionID != token {
			// Cookie lives for a day; session files are reclaimed by the
			// reaper regardless.
			c.SetCookie(SessionCookie, sessionID, 86400, "/", "", false, true)
		}
		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// SessionID returns the session id resolved for this request.
func SessionID(c *gin.Context) string {
	if v, ok := c.Get(sessionKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
