package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secretsanta/internal/services"
	"secretsanta/internal/session"
)

const (
	identityCookie = "santa_user"
	identityKey    = "identity"
)

// cookieSlot stores the identity in a session cookie: no Max-Age, so the
// browser drops it when the session ends. The value is not signed; it is
// the same trust level as browser session storage.
type cookieSlot struct {
	c *gin.Context
}

var _ session.IdentitySlot = cookieSlot{}

func (s cookieSlot) Load() string {
	name, err := s.c.Cookie(identityCookie)
	if err != nil {
		return ""
	}
	return services.NormalizeName(name)
}

func (s cookieSlot) Save(name string) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(identityCookie, name, 0, "/", "", false, true)
}

func (s cookieSlot) Clear() {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(identityCookie, "", -1, "/", "", false, true)
}

// IdentityMiddleware loads the remembered identity into the request context.
func (h *HTTPHandler) IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, cookieSlot{c}.Load())
		c.Next()
	}
}

// AdminMiddleware lets only the administrator identity through. This checks
// the client-held identity, not a credential.
func (h *HTTPHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.service.IsAdministrator(identity(c)) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) string {
	return c.GetString(identityKey)
}
