// Package classifier decides whether a request comes from an automated crawler.
package classifier

import (
	"strings"
)

const (
	// KnownBotConfidence is assigned when the user agent names a crawler.
	KnownBotConfidence = 100
	// NoScriptConfidence is the fixed ceiling for clients that never proved they run JavaScript.
	NoScriptConfidence = 80
	// CrawlerThreshold separates crawler verdicts from human ones.
	CrawlerThreshold = 80
)

// knownBots is checked in order; the first token found in the user agent wins.
var knownBots = []string{
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"sogou",
	"exabot",
	"facebot",
	"ia_archiver",
	"bot",
	"crawler",
	"spider",
}

// Verdict is the outcome of classifying one request.
type Verdict struct {
	IsCrawler   bool
	CrawlerName string // empty when no known bot matched
	Confidence  int
}

// Name returns the crawler name as a nullable value for storage.
func (v Verdict) Name() *string {
	if v.CrawlerName == "" {
		return nil
	}
	name := v.CrawlerName
	return &name
}

// KnownBots returns a copy of the ordered token list.
func KnownBots() []string {
	out := make([]string, len(knownBots))
	copy(out, knownBots)
	return out
}

// Classify 根据 User-Agent 与 JS 信号判定访问者类型。
// 已知爬虫标识优先且直接返回；否则未确认启用 JS 的请求按上限 80 计分。
func Classify(userAgent string, jsEnabled bool) Verdict {
	ua := strings.ToLower(userAgent)
	for _, token := range knownBots {
		if strings.Contains(ua, token) {
			return Verdict{
				IsCrawler:   true,
				CrawlerName: displayName(token),
				Confidence:  KnownBotConfidence,
			}
		}
	}

	confidence := 0
	if !jsEnabled {
		confidence = NoScriptConfidence
	}
	return Verdict{
		IsCrawler:  confidence >= CrawlerThreshold,
		Confidence: confidence,
	}
}

func displayName(token string) string {
	if token == "" {
		return ""
	}
	return strings.ToUpper(token[:1]) + token[1:]
}
