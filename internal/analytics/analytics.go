// Package analytics summarises recorded visits for the dashboards.
//
// All functions are pure: they take a slice of visits and never touch the store.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/crawlerlog/internal/classifier"
	"github.com/crawlerlog/internal/db"
)

const (
	// TopLimit caps every ranked list.
	TopLimit = 10
	// UnidentifiedCrawler labels crawler visits that matched no known bot token.
	UnidentifiedCrawler = "Unidentified"
	// RecentLimit caps the visit log shown on the admin overview.
	RecentLimit = 20

	dayLayout = "2006-01-02"
)

// Count is one row of a grouped count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DayCount is the number of visits on one UTC calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PathConfidence is the mean bot confidence observed on one path.
type PathConfidence struct {
	Path          string  `json:"path"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Window selects visits with timestamp >= Now - Days.
type Window struct {
	Days int
	Now  time.Time
}

// Cutoff returns the earliest timestamp included in the window.
func (w Window) Cutoff() time.Time {
	return w.Now.UTC().AddDate(0, 0, -w.Days)
}

// Summary 是 /analytics 页面所需的全部统计结果。
type Summary struct {
	Days                   int              `json:"days"`
	Since                  time.Time        `json:"since"`
	TotalVisits            int              `json:"total_visits"`
	CrawlerVisits          int              `json:"crawler_visits"`
	HumanVisits            int              `json:"human_visits"`
	UniqueSessions         int              `json:"unique_sessions"`
	TopCrawlers            []Count          `json:"top_crawlers"`
	TopPages               []Count          `json:"top_pages"`
	DeviceDistribution     []Count          `json:"device_distribution"`
	BrowserDistribution    []Count          `json:"browser_distribution"`
	OSDistribution         []Count          `json:"os_distribution"`
	AvgTimeOnPage          float64          `json:"avg_time_on_page"`
	AvgScrollDepth         float64          `json:"avg_scroll_depth"`
	BounceRate             float64          `json:"bounce_rate"`
	VisitorTrend           []DayCount       `json:"visitor_trend"`
	AvgBotConfidenceByPath []PathConfidence `json:"avg_bot_confidence_by_path"`
}

// Overview 是 /admin 页面的全量统计。
type Overview struct {
	TotalVisits   int        `json:"total_visits"`
	CrawlerVisits int        `json:"crawler_visits"`
	HumanVisits   int        `json:"human_visits"`
	TopCrawlers   []Count    `json:"top_crawlers"`
	TopPages      []Count    `json:"top_pages"`
	RecentVisits  []db.Visit `json:"recent_visits"`
}

// Summarize computes the windowed dashboard statistics.
// Visits outside the window are ignored even if the caller passed them in.
func Summarize(visits []db.Visit, w Window) Summary {
	cutoff := w.Cutoff()
	inWindow := make([]db.Visit, 0, len(visits))
	for _, v := range visits {
		if !v.Timestamp.Before(cutoff) {
			inWindow = append(inWindow, v)
		}
	}

	s := Summary{
		Days:  w.Days,
		Since: cutoff,
	}
	s.TotalVisits, s.CrawlerVisits, s.HumanVisits = totals(inWindow)
	s.UniqueSessions = uniqueSessions(inWindow)
	s.TopCrawlers = TopCrawlers(inWindow)
	s.TopPages = TopPages(inWindow)
	s.DeviceDistribution = DeviceDistribution(inWindow)
	s.BrowserDistribution = ranked(inWindow, func(v db.Visit) (string, bool) {
		return orOther(v.BrowserFamily), true
	})
	s.OSDistribution = ranked(inWindow, func(v db.Visit) (string, bool) {
		return orOther(v.OSFamily), true
	})
	s.AvgTimeOnPage = meanOf(inWindow, func(v db.Visit) *int { return v.TimeOnPage })
	s.AvgScrollDepth = meanOf(inWindow, func(v db.Visit) *int { return v.ScrollDepth })
	s.BounceRate = BounceRate(inWindow)
	s.VisitorTrend = VisitorTrend(inWindow, cutoff, w.Now)
	s.AvgBotConfidenceByPath = AvgBotConfidenceByPath(inWindow)
	return s
}

// BuildOverview computes the all-time totals for the admin page.
// visits are expected in chronological order.
func BuildOverview(visits []db.Visit) Overview {
	o := Overview{
		TopCrawlers: TopCrawlers(visits),
		TopPages:    TopPages(visits),
	}
	o.TotalVisits, o.CrawlerVisits, o.HumanVisits = totals(visits)

	n := len(visits)
	if n > RecentLimit {
		n = RecentLimit
	}
	o.RecentVisits = make([]db.Visit, 0, n)
	for i := len(visits) - 1; i >= 0 && len(o.RecentVisits) < n; i-- {
		o.RecentVisits = append(o.RecentVisits, visits[i])
	}
	return o
}

func totals(visits []db.Visit) (total, crawler, human int) {
	total = len(visits)
	for _, v := range visits {
		if v.IsCrawler {
			crawler++
		}
	}
	return total, crawler, total - crawler
}

// TopCrawlers groups crawler visits by name.
func TopCrawlers(visits []db.Visit) []Count {
	return ranked(visits, func(v db.Visit) (string, bool) {
		if !v.IsCrawler {
			return "", false
		}
		if v.CrawlerName == nil || *v.CrawlerName == "" {
			return UnidentifiedCrawler, true
		}
		return *v.CrawlerName, true
	})
}

// TopPages groups visits by path.
func TopPages(visits []db.Visit) []Count {
	return ranked(visits, func(v db.Visit) (string, bool) {
		return v.Path, true
	})
}

// DeviceDistribution always returns every device bucket in display order.
func DeviceDistribution(visits []db.Visit) []Count {
	counts := make(map[string]int, len(classifier.DeviceTypes))
	for _, v := range visits {
		device := v.DeviceType
		if device == "" {
			device = classifier.DeviceType(v.UserAgent)
		}
		switch device {
		case classifier.DeviceMobile, classifier.DeviceTablet, classifier.DeviceDesktop:
		default:
			device = classifier.DeviceOther
		}
		counts[device]++
	}

	out := make([]Count, 0, len(classifier.DeviceTypes))
	for _, device := range classifier.DeviceTypes {
		out = append(out, Count{Name: device, Count: counts[device]})
	}
	return out
}

// VisitorTrend counts visits per UTC day from the cutoff day to now, zero-filled.
func VisitorTrend(visits []db.Visit, cutoff, now time.Time) []DayCount {
	start := truncateDay(cutoff)
	end := truncateDay(now)

	counts := make(map[string]int)
	for _, v := range visits {
		counts[v.Timestamp.UTC().Format(dayLayout)]++
	}

	var out []DayCount
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}

// AvgBotConfidenceByPath ranks paths by their mean confidence.
func AvgBotConfidenceByPath(visits []db.Visit) []PathConfidence {
	type acc struct {
		sum, n int
		order  int
	}
	byPath := make(map[string]*acc)
	for _, v := range visits {
		a, ok := byPath[v.Path]
		if !ok {
			a = &acc{order: len(byPath)}
			byPath[v.Path] = a
		}
		a.sum += v.BotConfidence
		a.n++
	}

	out := make([]PathConfidence, 0, len(byPath))
	orders := make(map[string]int, len(byPath))
	for path, a := range byPath {
		out = append(out, PathConfidence{Path: path, AvgConfidence: round2(float64(a.sum) / float64(a.n))})
		orders[path] = a.order
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgConfidence != out[j].AvgConfidence {
			return out[i].AvgConfidence > out[j].AvgConfidence
		}
		return orders[out[i].Path] < orders[out[j].Path]
	})
	if len(out) > TopLimit {
		out = out[:TopLimit]
	}
	return out
}

// BounceRate is the share of human sessions that viewed a single page and reported no engagement.
func BounceRate(visits []db.Visit) float64 {
	type session struct {
		views   int
		engaged bool
	}
	sessions := make(map[string]*session)
	for _, v := range visits {
		if v.IsCrawler || v.SessionID == "" {
			continue
		}
		s, ok := sessions[v.SessionID]
		if !ok {
			s = &session{}
			sessions[v.SessionID] = s
		}
		s.views++
		if v.HasEngagement() {
			s.engaged = true
		}
	}
	if len(sessions) == 0 {
		return 0
	}

	bounced := 0
	for _, s := range sessions {
		if s.views == 1 && !s.engaged {
			bounced++
		}
	}
	return round2(float64(bounced) * 100 / float64(len(sessions)))
}

func uniqueSessions(visits []db.Visit) int {
	seen := make(map[string]struct{})
	for _, v := range visits {
		if v.SessionID != "" {
			seen[v.SessionID] = struct{}{}
		}
	}
	return len(seen)
}

// ranked groups visits by key, sorts by count desc (first seen breaks ties) and caps at TopLimit.
func ranked(visits []db.Visit, key func(db.Visit) (string, bool)) []Count {
	index := make(map[string]int)
	out := []Count{}
	for _, v := range visits {
		k, ok := key(v)
		if !ok {
			continue
		}
		if i, seen := index[k]; seen {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, Count{Name: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > TopLimit {
		out = out[:TopLimit]
	}
	return out
}

func meanOf(visits []db.Visit, field func(db.Visit) *int) float64 {
	sum, n := 0, 0
	for _, v := range visits {
		if p := field(v); p != nil {
			sum += *p
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(float64(sum) / float64(n))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func orOther(s string) string {
	if s == "" {
		return classifier.DeviceOther
	}
	return s
}
