package db

import "time"

// Visit 记录一次页面访问及其爬虫判定结果。
// TimeOnPage 与 ScrollDepth 由前端稍后上报，未上报时为 nil。
type Visit struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"size:100;index" json:"session_id"`
	UserAgent     string    `gorm:"size:500" json:"user_agent"`
	IPAddress     string    `gorm:"size:50" json:"ip_address"`
	Path          string    `gorm:"size:200;index" json:"path"`
	Referrer      string    `gorm:"size:500" json:"referrer"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	IsCrawler     bool      `gorm:"index" json:"is_crawler"`
	CrawlerName   *string   `gorm:"size:200" json:"crawler_name"`
	BotConfidence int       `gorm:"not null;default:0" json:"bot_confidence"`
	TimeOnPage    *int      `json:"time_on_page"`
	ScrollDepth   *int      `json:"scroll_depth"`
	DeviceType    string    `gorm:"size:20" json:"device_type"`
	BrowserFamily string    `gorm:"size:50" json:"browser_family"`
	OSFamily      string    `gorm:"size:50" json:"os_family"`
}

// TableName 指定自定义表名。
func (Visit) TableName() string {
	return "crawler_visits"
}

// HasEngagement reports whether the client sent any engagement data for this visit.
func (v Visit) HasEngagement() bool {
	return v.TimeOnPage != nil || v.ScrollDepth != nil
}
