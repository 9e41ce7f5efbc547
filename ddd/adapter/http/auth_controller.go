package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cliparr/ddd/application/app"
	"cliparr/ddd/domain/service"
	"cliparr/pkg/restapi"
)

// AuthController Plex 登录接口
type AuthController struct {
	authApp      app.AuthApp
	secureCookie bool
}

func NewAuthController(authApp app.AuthApp, secureCookie bool) *AuthController {
	return &AuthController{authApp: authApp, secureCookie: secureCookie}
}

// Login POST /api/v1/auth/login
func (ctl *AuthController) Login(c *gin.Context) {
	out, err := ctl.authApp.StartLogin(c.Request.Context())
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}

// Poll GET /api/v1/auth/poll?pinId=
func (ctl *AuthController) Poll(c *gin.Context) {
	out, err := ctl.authApp.PollLogin(c.Request.Context(), c.Query("pinId"))
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	if out.Authenticated {
		ctl.setSessionCookie(c, out.Token, int(service.SessionTokenTTL.Seconds()))
	}
	restapi.Success(c, out)
}

// Me GET /api/v1/auth/me
func (ctl *AuthController) Me(c *gin.Context) {
	out, err := ctl.authApp.Me(c.Request.Context(), currentPrincipal(c).UserID)
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}

// Logout POST /api/v1/auth/logout
func (ctl *AuthController) Logout(c *gin.Context) {
	if err := ctl.authApp.Logout(c.Request.Context(), currentPrincipal(c).SessionID); err != nil {
		restapi.Failed(c, err)
		return
	}
	ctl.setSessionCookie(c, "", -1)
	restapi.OK(c)
}

func (ctl *AuthController) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, value, maxAge, "/", "", ctl.secureCookie, true)
}
