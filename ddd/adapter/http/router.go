package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cliparr/ddd/application/app"
	"cliparr/ddd/infrastructure/scheduler"
	"cliparr/ddd/infrastructure/worker"
	"cliparr/pkg/middleware"
	"cliparr/pkg/observability"
)

// SweeperStatus 过期清理任务的运行状态
type SweeperStatus interface {
	IsRunning() bool
	GetStats() worker.SweeperStats
}

// RouterDeps 路由依赖
type RouterDeps struct {
	ClipApp     app.ClipApp
	ViewApp     app.ViewApp
	AuthApp     app.AuthApp
	SettingsApp app.SettingsApp
	ShareApp    app.ShareApp
	PlaybackApp app.PlaybackApp
	Files       app.ArtifactLocator

	// Stats feeds /health; nil omits the scheduler block.
	Stats func() scheduler.Stats

	// Sweeper feeds /health; nil omits the sweeper block.
	Sweeper SweeperStatus

	// Limiter guards /api; nil disables rate limiting.
	Limiter middleware.Limiter

	// Metrics nil disables /metrics and request instrumentation.
	Metrics     *observability.Metrics
	MetricsPath string

	SecureCookie bool
	Version      string
}

// Router 路由配置
type Router struct {
	deps      RouterDeps
	startedAt time.Time
}

// NewRouter 创建路由配置
func NewRouter(deps RouterDeps) *Router {
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	return &Router{deps: deps, startedAt: time.Now()}
}

// SetupMiddleware 全局中间件
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestContextMiddleware())
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.CORS())
	engine.Use(middleware.AccessLog())
	if r.deps.Metrics != nil {
		engine.Use(r.deps.Metrics.GinMiddleware())
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// 创建控制器
	authController := NewAuthController(r.deps.AuthApp, r.deps.SecureCookie)
	clipController := NewClipController(r.deps.ClipApp, r.deps.ShareApp)
	settingsController := NewSettingsController(r.deps.SettingsApp)
	playerController := NewPlayerController(r.deps.PlaybackApp, r.deps.ViewApp, r.deps.Files)

	requireAuth := RequireAuth(r.deps.AuthApp)

	// API v1 路由组
	v1 := engine.Group("/api/v1", middleware.RateLimit(r.deps.Limiter))
	{
		// 登录相关路由
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authController.Login)                // 创建 PIN
			auth.GET("/poll", authController.Poll)                   // 轮询 PIN
			auth.GET("/me", requireAuth, authController.Me)          // 当前用户
			auth.POST("/logout", requireAuth, authController.Logout) // 退出登录
		}

		// 剪辑相关路由
		clips := v1.Group("/clips", requireAuth)
		{
			clips.POST("", clipController.Create)                    // 创建剪辑
			clips.GET("", clipController.List)                       // 剪辑列表
			clips.GET("/:id", clipController.Get)                    // 剪辑详情
			clips.PATCH("/:id", clipController.Update)               // 修改标题/有效期/观看上限
			clips.DELETE("/:id", clipController.Delete)              // 删除剪辑
			clips.GET("/:id/analytics", clipController.Analytics)    // 观看统计
			clips.GET("/:id/qr", clipController.QRCode)              // 分享二维码
			clips.GET("/:id/share-links", clipController.ShareLinks) // 社交分享链接
		}

		// 管理员设置
		server := v1.Group("/server", requireAuth, RequireAdmin())
		{
			server.GET("/settings", settingsController.Get)
			server.PUT("/settings", settingsController.Put)
		}

		// 播放器上报
		v1.POST("/player/:clipId/views", playerController.RecordView)
	}

	// 公开播放页与流
	engine.GET("/c/:clipId", playerController.Page)
	engine.GET("/stream/:clipId/*path", playerController.Stream)
	engine.GET("/clips/:clipId/thumb.jpg", playerController.Thumbnail)

	// 健康检查路由
	engine.GET("/health", r.health)

	if r.deps.Metrics != nil {
		engine.GET(r.deps.MetricsPath, gin.WrapH(observability.Handler()))
	}
}

func (r *Router) health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "cliparr",
		"version": r.deps.Version,
		"uptime":  time.Since(r.startedAt).Round(time.Second).String(),
	}
	if r.deps.Stats != nil {
		body["transcodes"] = r.deps.Stats()
	}
	if r.deps.Sweeper != nil {
		body["sweeper"] = gin.H{
			"running": r.deps.Sweeper.IsRunning(),
			"stats":   r.deps.Sweeper.GetStats(),
		}
	}
	c.JSON(http.StatusOK, body)
}
