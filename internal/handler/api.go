package handler

import (
	"time"

	"github.com/crawlerlog/internal/presence"
	"github.com/crawlerlog/internal/service"
	"github.com/gin-gonic/gin"
)

// Options carries the presentation settings handlers need.
type Options struct {
	SiteName     string
	PostsPerPage int
	RelatedPosts int
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	posts     *service.PostService
	visits    *service.VisitRecorder
	analytics *service.AnalyticsService
	presence  *presence.Hub

	siteName     string
	postsPerPage int
	relatedPosts int
}

// NewAPI constructs a handler set with shared services.
func NewAPI(posts *service.PostService, visits *service.VisitRecorder, analytics *service.AnalyticsService, hub *presence.Hub, opts Options) *API {
	if opts.SiteName == "" {
		opts.SiteName = "Crawler Log"
	}
	if opts.PostsPerPage < 1 {
		opts.PostsPerPage = 5
	}
	if opts.RelatedPosts < 0 {
		opts.RelatedPosts = 0
	}
	return &API{
		posts:        posts,
		visits:       visits,
		analytics:    analytics,
		presence:     hub,
		siteName:     opts.SiteName,
		postsPerPage: opts.PostsPerPage,
		relatedPosts: opts.RelatedPosts,
	}
}

// renderHTML 渲染模板时自动附加站点名称、主题与在线人数。
func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = a.siteName
	}
	if _, exists := payload["theme"]; !exists {
		payload["theme"] = currentTheme(c)
	}
	if _, exists := payload["year"]; !exists {
		payload["year"] = time.Now().Year()
	}
	if _, exists := payload["activeUsers"]; !exists && a.presence != nil {
		payload["activeUsers"] = a.presence.Count()
	}

	c.HTML(status, template, payload)
}

func (a *API) renderError(c *gin.Context, status int, title, message string) {
	a.renderHTML(c, status, "error.html", gin.H{
		"title":   title,
		"status":  status,
		"message": message,
	})
}
