package handler

import (
	"strings"

	"github.com/crawlerlog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionIDKey    = "session_id"
	sessionThemeKey = "theme"
	jsCookieName    = "js_enabled"

	themeLight = "light"
	themeDark  = "dark"
)

// EnsureSession 为每个浏览器会话分配一次 uuid，并写入 gin 上下文。
// Must run after the sessions middleware.
func EnsureSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := session.Get(sessionIDKey).(string)
		if strings.TrimSpace(id) == "" {
			id = uuid.NewString()
			session.Set(sessionIDKey, id)
			if err := session.Save(); err != nil {
				c.Error(err) // 会话写入失败不影响请求
			}
		}
		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// SessionID returns the id assigned by EnsureSession.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

func jsEnabled(c *gin.Context) bool {
	value, err := c.Cookie(jsCookieName)
	return err == nil && value == "true"
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		SessionID: SessionID(c),
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Referrer:  c.Request.Referer(),
		JSEnabled: jsEnabled(c),
	}
}

func currentTheme(c *gin.Context) string {
	session := sessions.Default(c)
	if theme, ok := session.Get(sessionThemeKey).(string); ok && theme == themeDark {
		return themeDark
	}
	return themeLight
}
