package http

import (
	"github.com/gin-gonic/gin"

	"cliparr/ddd/application/app"
	"cliparr/ddd/application/cqe"
	"cliparr/pkg/errno"
	"cliparr/pkg/restapi"
)

// SettingsController 管理员设置接口
type SettingsController struct {
	settingsApp app.SettingsApp
}

func NewSettingsController(settingsApp app.SettingsApp) *SettingsController {
	return &SettingsController{settingsApp: settingsApp}
}

// Get GET /api/v1/server/settings
func (ctl *SettingsController) Get(c *gin.Context) {
	restapi.Success(c, ctl.settingsApp.Current(c.Request.Context()))
}

// Put PUT /api/v1/server/settings
func (ctl *SettingsController) Put(c *gin.Context) {
	var req cqe.UpdateSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		restapi.Failed(c, errno.NewBizError(errno.ErrSettingInvalid, err))
		return
	}
	if _, err := ctl.settingsApp.Update(c.Request.Context(), &req); err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.OK(c)
}
