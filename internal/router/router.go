package router

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/crawlerlog/internal/config"
	"github.com/crawlerlog/internal/handler"
	"github.com/crawlerlog/internal/metrics"
	"github.com/crawlerlog/internal/presence"
	"github.com/crawlerlog/internal/service"
	"github.com/crawlerlog/web"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionCookieName = "crawlerlog_session"

// Deps lists everything the router wires into handlers.
type Deps struct {
	Config    config.AppConfig
	Posts     *service.PostService
	Visits    *service.VisitRecorder
	Analytics *service.AnalyticsService
	Presence  *presence.Hub
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config

	r := gin.New()
	r.Use(gin.Recovery(), handler.AccessLog())

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   0, // 浏览器会话级 cookie
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	// 加载模板并添加自定义函数
	tmpl, err := web.Templates(FuncMap())
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	r.StaticFS("/static", web.Static())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	if deps.Presence != nil {
		r.GET("/ws/presence", gin.WrapH(deps.Presence))
	}

	api := handler.NewAPI(deps.Posts, deps.Visits, deps.Analytics, deps.Presence, handler.Options{
		SiteName:     cfg.SiteName,
		PostsPerPage: cfg.PostsPerPage,
		RelatedPosts: cfg.RelatedPosts,
	})

	pages := r.Group("")
	pages.Use(handler.EnsureSession())
	{
		pages.GET("/", api.ShowHome)
		pages.GET("/post/:slug", api.ShowPost)
		pages.GET("/admin", api.ShowAdmin)
		pages.GET("/analytics", api.ShowAnalytics)
		pages.GET("/placeholder/:file", api.ShowPlaceholder)

		apiGroup := pages.Group("/api")
		{
			apiGroup.GET("/posts", api.GetPosts)
			apiGroup.GET("/analytics", api.GetAnalytics)
			apiGroup.POST("/set_theme", api.SetTheme)

			tracking := apiGroup.Group("")
			tracking.Use(handler.RateLimit(cfg.TrackingRatePerMinute, cfg.TrackingBurst))
			{
				tracking.POST("/log_time", api.LogTime)
				tracking.POST("/log_scroll", api.LogScroll)
			}
		}
	}

	return r, nil
}

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"date": func(t time.Time) string {
			return t.UTC().Format("2006-01-02")
		},
		"datetime": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04:05")
		},
		"percent": func(part, total int) string {
			if total <= 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", float64(part)*100/float64(total))
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
}
