package seed

import (
	"fmt"
	"strings"
)

var (
	titleAdjectives = []string{
		"Practical", "Modern", "Hidden", "Essential", "Curious", "Quiet", "Advanced", "Everyday",
	}
	titleSubjects = []string{
		"Crawlers", "Search Engines", "User Agents", "Sitemaps", "Robots Rules", "Web Archives",
		"Headless Browsers", "Caching", "Page Speed", "Analytics",
	}
	titlePatterns = []string{
		"%s Guide to %s",
		"Notes on %s %s",
		"%s Lessons from %s",
		"The %s Side of %s",
	}
	loremWords = []string{
		"crawler", "index", "request", "header", "agent", "page", "link", "sitemap", "cache",
		"render", "script", "session", "visit", "search", "signal", "robots", "content",
		"latency", "traffic", "server", "pattern", "metric", "scroll", "reader",
	}
)

// randomText builds a title and a few markdown paragraphs.
func (s *Seeder) randomText() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pattern := titlePatterns[s.rng.Intn(len(titlePatterns))]
	adjective := titleAdjectives[s.rng.Intn(len(titleAdjectives))]
	subject := titleSubjects[s.rng.Intn(len(titleSubjects))]
	title := strings.TrimSpace(fmt.Sprintf(pattern, adjective, subject))

	paragraphs := 2 + s.rng.Intn(3)
	parts := make([]string, 0, paragraphs)
	for p := 0; p < paragraphs; p++ {
		parts = append(parts, s.sentenceLocked(8+s.rng.Intn(12)))
	}
	return title, strings.Join(parts, "\n\n")
}

func (s *Seeder) sentenceLocked(words int) string {
	out := make([]string, words)
	for i := range out {
		out[i] = loremWords[s.rng.Intn(len(loremWords))]
	}
	first := out[0]
	out[0] = strings.ToUpper(first[:1]) + first[1:]
	return strings.Join(out, " ") + "."
}
