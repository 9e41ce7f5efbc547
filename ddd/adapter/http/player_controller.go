package http

import (
	"embed"
	"html/template"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"cliparr/ddd/application/app"
	"cliparr/ddd/application/cqe"
	"cliparr/pkg/errno"
	"cliparr/pkg/logger"
	"cliparr/pkg/restapi"
)

//go:embed templates/clip.html
var templateFS embed.FS

var clipPageTmpl = template.Must(template.ParseFS(templateFS, "templates/clip.html"))

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"
)

// PlayerController 公开播放页、HLS 流与观看上报
type PlayerController struct {
	playbackApp app.PlaybackApp
	viewApp     app.ViewApp
	files       app.ArtifactLocator
}

func NewPlayerController(playbackApp app.PlaybackApp, viewApp app.ViewApp, files app.ArtifactLocator) *PlayerController {
	return &PlayerController{playbackApp: playbackApp, viewApp: viewApp, files: files}
}

// Page GET /c/:clipId?t=
func (ctl *PlayerController) Page(c *gin.Context) {
	page, err := ctl.playbackApp.Page(c.Request.Context(), c.Param("clipId"), c.Query("t"))
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	status := http.StatusOK
	if page.Gone {
		status = http.StatusGone
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := clipPageTmpl.Execute(c.Writer, page); err != nil {
		logger.Error("render clip page failed", map[string]interface{}{"clip_id": page.Data.ClipID, "error": err.Error()})
	}
}

// RecordView POST /api/v1/player/:clipId/views
func (ctl *PlayerController) RecordView(c *gin.Context) {
	var body cqe.RecordViewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		restapi.Failed(c, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	if err := body.Validate(); err != nil {
		restapi.Failed(c, err)
		return
	}
	key := body.SessionID
	if key == "" {
		key = c.ClientIP() + "|" + c.Request.UserAgent()
	}
	err := ctl.viewApp.RecordView(c.Request.Context(), &cqe.RecordViewReq{
		ClipID:          c.Param("clipId"),
		SessionKey:      key,
		WatchDurationMs: body.WatchDurationMs,
		WatchPercentage: body.WatchPercentage,
		UserAgent:       c.Request.UserAgent(),
	})
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	restapi.OK(c)
}

// Stream GET /stream/:clipId/*path
// master.m3u8 takes ?t= (share token); variants and segments take ?st= (segment token).
func (ctl *PlayerController) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	clipID := c.Param("clipId")
	rel := strings.TrimPrefix(c.Param("path"), "/")

	switch {
	case rel == "master.m3u8":
		body, err := ctl.playbackApp.MasterPlaylist(ctx, clipID, c.Query("t"))
		ctl.writePlaylist(c, body, err)
	case path.Ext(rel) == ".m3u8":
		body, err := ctl.playbackApp.VariantPlaylist(ctx, clipID, rel, c.Query("st"))
		ctl.writePlaylist(c, body, err)
	case path.Ext(rel) == ".ts":
		file, err := ctl.playbackApp.SegmentFile(ctx, clipID, rel, c.Query("st"))
		if err != nil {
			restapi.Failed(c, err)
			return
		}
		c.Header("Content-Type", segmentContentType)
		c.Header("Cache-Control", "private, max-age=3600")
		c.File(file)
	default:
		restapi.Failed(c, errno.ErrNotFound)
	}
}

// Thumbnail GET /clips/:clipId/thumb.jpg
func (ctl *PlayerController) Thumbnail(c *gin.Context) {
	clipID := c.Param("clipId")
	if strings.ContainsAny(clipID, `/\`) || strings.HasPrefix(clipID, ".") {
		restapi.Failed(c, errno.ErrNotFound)
		return
	}
	full, err := ctl.files.Path(clipID + "/thumb.jpg")
	if err != nil {
		restapi.Failed(c, errno.ErrNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(full)
}

func (ctl *PlayerController) writePlaylist(c *gin.Context, body string, err error) {
	if err != nil {
		restapi.Failed(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, playlistContentType, []byte(body))
}
