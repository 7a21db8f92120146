package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/yvetteluxe63/yvetteluxe/common/errors"
	"github.com/yvetteluxe63/yvetteluxe/services"
)

const (
	SessionHeader     = "X-Session-ID"
	IdempotencyHeader = "Idempotency-Key"

	// SessionQueryParam carries the session id for websocket upgrades, which cannot set headers.
	SessionQueryParam = "session_id"

	sessionIDKey = "session_id"
	sessionKey   = "shopper_session"
)

// Session resolves the X-Session-ID header to a hydrated shopper session.
func Session(registry *services.SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" && websocket.IsWebSocketUpgrade(c.Request) {
			id = c.Query(SessionQueryParam)
		}
		if id == "" {
			_ = c.Error(apperrors.ErrMissingSession)
			c.Abort()
			return
		}

		sess, err := registry.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, services.ErrInvalidSessionID) {
				_ = c.Error(apperrors.Validation("session", err.Error()))
			} else {
				_ = c.Error(apperrors.Wrap(apperrors.ErrServiceUnavailable, err))
			}
			c.Abort()
			return
		}

		c.Set(sessionIDKey, sess.ID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// GetSession returns the session stored by Session.
func GetSession(c *gin.Context) (*services.ShopperSession, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*services.ShopperSession)
	return sess, ok
}

// RequireAdmin lets the request through only when the session's admin gate is open.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok || !sess.Admin.IsAuthenticated() {
			_ = c.Error(apperrors.ErrAdminRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCustomer lets the request through only for a signed-in shopper.
func RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok || !sess.Auth.IsAuthenticated() {
			_ = c.Error(apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
