package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/crawlerlog/internal/db"
	"github.com/crawlerlog/internal/placeholder"
	"github.com/crawlerlog/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// ShowHome renders the public home page with pagination.
func (a *API) ShowHome(c *gin.Context) {
	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)

	a.visits.RecordVisit(c.Request.Context(), requestMeta(c), "/", service.Engagement{})

	posts, err := a.posts.List(c.Request.Context(), page, a.postsPerPage)
	if err != nil {
		c.Error(err)
		a.renderError(c, http.StatusInternalServerError, "Error", "Failed to load posts")
		return
	}

	a.renderHTML(c, http.StatusOK, "home.html", gin.H{
		"title":      "Home",
		"posts":      posts.Posts,
		"page":       posts.Page,
		"totalPages": posts.TotalPages,
		"hasMore":    posts.HasMore,
	})
}

// ShowPost renders a single post by slug.
func (a *API) ShowPost(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	ctx := c.Request.Context()

	post, err := a.posts.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			a.renderError(c, http.StatusNotFound, "Not Found", "Post not found")
			return
		}
		c.Error(err)
		a.renderError(c, http.StatusInternalServerError, "Error", "Failed to load post")
		return
	}

	if err := a.posts.IncrementViewCount(ctx, post.ID); err != nil {
		c.Error(err) // 不中断渲染，但记录错误
	} else {
		post.ViewCount++
	}

	a.visits.RecordVisit(ctx, requestMeta(c), db.PostPath(post.Slug), service.Engagement{})

	related, err := a.posts.Related(ctx, post.Slug, a.relatedPosts)
	if err != nil {
		c.Error(err)
		related = nil
	}

	htmlContent, err := renderMarkdown(post.Content)
	if err != nil {
		c.Error(err)
		a.renderError(c, http.StatusInternalServerError, "Error", "Failed to render post")
		return
	}

	a.renderHTML(c, http.StatusOK, "post.html", gin.H{
		"title":        post.Title,
		"post":         post,
		"content":      htmlContent,
		"relatedPosts": related,
	})
}

// ShowPlaceholder serves a post's cover image as PNG.
func (a *API) ShowPlaceholder(c *gin.Context) {
	slug := strings.TrimSuffix(c.Param("file"), ".png")

	post, err := a.posts.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	raw, err := placeholder.DecodeDataURI(post.Image)
	if err != nil {
		raw, err = placeholder.ForSlug(post.Slug, post.Title)
		if err != nil {
			c.Error(err)
			c.Status(http.StatusInternalServerError)
			return
		}
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", raw)
}

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}
