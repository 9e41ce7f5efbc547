package http

import (
	"github.com/gin-gonic/gin"

	"cliparr/ddd/application/app"
	"cliparr/ddd/application/cqe"
	"cliparr/pkg/errno"
	"cliparr/pkg/restapi"
)

// ClipController 剪辑管理接口
type ClipController struct {
	clipApp  app.ClipApp
	shareApp app.ShareApp
}

func NewClipController(clipApp app.ClipApp, shareApp app.ShareApp) *ClipController {
	return &ClipController{clipApp: clipApp, shareApp: shareApp}
}

// Create POST /api/v1/clips
func (ctl *ClipController) Create(c *gin.Context) {
	var req cqe.CreateClipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		restapi.Failed(c, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	p := currentPrincipal(c)
	out, err := ctl.clipApp.CreateClip(c.Request.Context(), p.UserID, p.PlexToken, &req)
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Created(c, out)
}

// List GET /api/v1/clips
func (ctl *ClipController) List(c *gin.Context) {
	var req cqe.ListClipsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		restapi.Failed(c, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	out, err := ctl.clipApp.ListClips(c.Request.Context(), currentPrincipal(c).UserID, &req)
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}

// Get GET /api/v1/clips/:id
func (ctl *ClipController) Get(c *gin.Context) {
	out, err := ctl.clipApp.GetClip(c.Request.Context(), currentPrincipal(c).UserID, c.Param("id"))
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}

// Update PATCH /api/v1/clips/:id
func (ctl *ClipController) Update(c *gin.Context) {
	var req cqe.UpdateClipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		restapi.Failed(c, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	if err := ctl.clipApp.UpdateClip(c.Request.Context(), currentPrincipal(c).UserID, c.Param("id"), &req); err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.OK(c)
}

// Delete DELETE /api/v1/clips/:id
func (ctl *ClipController) Delete(c *gin.Context) {
	if err := ctl.clipApp.DeleteClip(c.Request.Context(), currentPrincipal(c).UserID, c.Param("id")); err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.OK(c)
}

// Analytics GET /api/v1/clips/:id/analytics
func (ctl *ClipController) Analytics(c *gin.Context) {
	out, err := ctl.clipApp.ClipAnalytics(c.Request.Context(), currentPrincipal(c).UserID, c.Param("id"))
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}

// QRCode GET /api/v1/clips/:id/qr
func (ctl *ClipController) QRCode(c *gin.Context) {
	out, err := ctl.shareApp.QRCode(c.Request.Context(), currentPrincipal(c).UserID, c.Param("id"))
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}

// ShareLinks GET /api/v1/clips/:id/share-links
func (ctl *ClipController) ShareLinks(c *gin.Context) {
	out, err := ctl.shareApp.ShareLinks(c.Request.Context(), currentPrincipal(c).UserID, c.Param("id"))
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.Success(c, out)
}
