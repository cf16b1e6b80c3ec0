package handler

import (
	"net/http"
	"strconv"

	"github.com/crawlerlog/internal/service"
	"github.com/gin-gonic/gin"
)

// ShowAdmin renders all-time crawler statistics.
func (a *API) ShowAdmin(c *gin.Context) {
	overview, err := a.analytics.Overview(c.Request.Context())
	if err != nil {
		c.Error(err)
		a.renderError(c, http.StatusInternalServerError, "Error", "Failed to load statistics")
		return
	}

	a.renderHTML(c, http.StatusOK, "admin.html", gin.H{
		"title": "Admin",
		"stats": overview,
	})
}

// ShowAnalytics renders the windowed analytics dashboard.
func (a *API) ShowAnalytics(c *gin.Context) {
	days := analyticsDays(c)

	summary, err := a.analytics.Summary(c.Request.Context(), days)
	if err != nil {
		c.Error(err)
		a.renderError(c, http.StatusInternalServerError, "Error", "Failed to load analytics")
		return
	}

	a.renderHTML(c, http.StatusOK, "analytics.html", gin.H{
		"title":   "Analytics",
		"days":    summary.Days,
		"summary": summary,
		"windows": []int{1, 7, 30, 90},
	})
}

// GetAnalytics returns the windowed analytics summary as JSON.
func (a *API) GetAnalytics(c *gin.Context) {
	summary, err := a.analytics.Summary(c.Request.Context(), analyticsDays(c))
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func analyticsDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(service.DefaultAnalyticsDays)))
	if err != nil {
		return service.DefaultAnalyticsDays
	}
	return service.NormalizeDays(days)
}
