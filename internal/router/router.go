package router

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/config"
	"github.com/pointlog/internal/handler"
	"github.com/pointlog/internal/observability"
	"github.com/pointlog/internal/service"
	"github.com/pointlog/internal/view"
	"github.com/pointlog/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionName   = "pointlog_session"
	sessionMaxAge = 7 * 24 * time.Hour
	iconURLPrefix = "/icons"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(gdb *gorm.DB, cfg config.AppConfig, push *service.PushService, logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), observability.GinLogger(logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.SiteBaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 加载内嵌模板
	tmpl, err := web.Templates(handler.TemplateFuncs())
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	static := web.Static()
	r.StaticFS(web.StaticPrefix, http.FS(static))

	assets, err := web.BuildAssetManifest(static, web.StaticPrefix)
	if err != nil {
		return nil, err
	}

	iconFS, iconDir, iconPrefix := static, web.IconDir, web.StaticPrefix+"/"+web.IconDir
	if dir := strings.TrimSpace(cfg.IconDir); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			iconFS, iconDir, iconPrefix = os.DirFS(dir), ".", iconURLPrefix
			r.Static(iconURLPrefix, dir)
		} else {
			logger.Warn("icon directory not found, using embedded icons", zap.String("dir", dir))
		}
	}
	icons, err := view.DiscoverIcons(iconFS, iconDir, iconPrefix)
	if err != nil {
		return nil, err
	}

	worker, err := web.WorkerScript()
	if err != nil {
		return nil, fmt.Errorf("load worker script: %w", err)
	}

	api := handler.NewAPI(gdb, push, logger, handler.Options{
		SiteName:           cfg.SiteName,
		BaseURL:            cfg.SiteBaseURL,
		Icons:              icons,
		Assets:             assets,
		SubscribeRateLimit: cfg.SubscribeRateLimit,
	})

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/entry.worker.js", handler.WorkerScript(worker))

	pages := r.Group("")
	pages.Use(api.LocaleMiddleware())
	{
		pages.GET("/", api.ShowBoard)

		resources := pages.Group("/resources")
		{
			resources.GET("/subscribe", api.GetSubscribeKey)
			resources.POST("/subscribe", api.PostSubscription)
			resources.GET("/manifest.webmanifest", api.ShowManifest)
		}

		public := pages.Group("/api")
		{
			public.GET("/templates", api.ListTemplates)
			public.GET("/activities", api.ListActivities)
			public.POST("/activities", api.CreateActivity)
			public.GET("/leaderboard", api.Leaderboard)
		}

		// 后台管理路由
		admin := pages.Group("/admin")
		{
			admin.GET("/login", api.ShowLoginPage)
			admin.POST("/login", api.Login)
			admin.GET("/logout", api.Logout)

			adminAPI := admin.Group("/api")
			adminAPI.Use(api.AdminAPIRequired())
			{
				adminAPI.POST("/notify", api.Notify)
				adminAPI.GET("/settings", api.GetSystemSettings)
				adminAPI.PUT("/settings", api.UpdateSystemSettings)
				adminAPI.GET("/overview", api.ShowOverview)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	return r, nil
}
