package handler

import (
	"net/http"

	"github.com/crawlerlog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const apiDateLayout = "2006-01-02"

type postSummary struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
	Image     string `json:"image"`
	Content   string `json:"content"`
}

type timeReport struct {
	Path       string `json:"path" binding:"required,startswith=/,max=200"`
	TimeOnPage *int   `json:"time_on_page" binding:"required,min=0,max=86400"`
}

type scrollReport struct {
	Path        string `json:"path" binding:"required,startswith=/,max=200"`
	ScrollDepth *int   `json:"scroll_depth" binding:"required,min=0,max=100"`
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required,oneof=light dark"`
}

// GetPosts returns one page of posts with truncated content.
func (a *API) GetPosts(c *gin.Context) {
	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)

	result, err := a.posts.List(c.Request.Context(), page, a.postsPerPage)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "failed to load posts")
		return
	}

	items := make([]postSummary, 0, len(result.Posts))
	for _, post := range result.Posts {
		items = append(items, postSummary{
			Title:     post.Title,
			Slug:      post.Slug,
			CreatedAt: post.CreatedAt.Format(apiDateLayout),
			Image:     post.Image,
			Content:   service.Excerpt(post.Content),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    items,
		"has_more": result.HasMore,
	})
}

// LogTime records the time a reader spent on a page.
func (a *API) LogTime(c *gin.Context) {
	var req timeReport
	if !bindJSON(c, &req, "invalid time report") {
		return
	}
	a.visits.RecordVisit(c.Request.Context(), requestMeta(c), req.Path, service.Engagement{TimeOnPage: req.TimeOnPage})
	c.Status(http.StatusNoContent)
}

// LogScroll records how far a reader scrolled on a page.
func (a *API) LogScroll(c *gin.Context) {
	var req scrollReport
	if !bindJSON(c, &req, "invalid scroll report") {
		return
	}
	a.visits.RecordVisit(c.Request.Context(), requestMeta(c), req.Path, service.Engagement{ScrollDepth: req.ScrollDepth})
	c.Status(http.StatusNoContent)
}

// SetTheme stores the UI theme in the session.
func (a *API) SetTheme(c *gin.Context) {
	var req themeRequest
	if !bindJSON(c, &req, "invalid theme") {
		return
	}

	session := sessions.Default(c)
	session.Set(sessionThemeKey, req.Theme)
	if err := session.Save(); err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "failed to save theme")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
