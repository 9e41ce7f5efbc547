package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"cliparr/ddd/application/app"
	"cliparr/ddd/application/dto"
	"cliparr/pkg/errno"
	"cliparr/pkg/restapi"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "cliparr_session"
	principalKey  = "principal"
)

// RequireAuth resolves the session token from the Authorization header or the session cookie.
func RequireAuth(auth app.AuthApp) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.Authenticate(c.Request.Context(), sessionToken(c))
		if err != nil {
			restapi.Failed(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := currentPrincipal(c)
		if p == nil || !p.IsAdmin {
			restapi.Failed(c, errno.ErrAdminRequired)
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return v
	}
	return ""
}

func currentPrincipal(c *gin.Context) *dto.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*dto.Principal)
	return p
}
