// Package seed fills an empty store with sample posts and can generate random ones.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/crawlerlog/internal/db"
	"github.com/crawlerlog/internal/logging"
	"github.com/crawlerlog/internal/placeholder"
	"github.com/crawlerlog/internal/store"
)

const maxSlugAttempts = 100

// SamplePost is one of the built-in demo posts.
type SamplePost struct {
	Title   string
	Slug    string
	Content string
}

var samplePosts = []SamplePost{
	{
		Title: "Understanding Web Crawlers",
		Slug:  "understanding-web-crawlers",
		Content: "Web crawlers, also known as spiders or bots, are automated programs that " +
			"systematically browse the World Wide Web.\n\n" +
			"Search engines rely on them to discover pages, follow links and keep their " +
			"indexes fresh. Most announce themselves through the `User-Agent` header.",
	},
	{
		Title: "SEO Best Practices 2024",
		Slug:  "seo-best-practices-2024",
		Content: "Search Engine Optimization remains a critical aspect of web development.\n\n" +
			"- Serve meaningful titles and descriptions\n" +
			"- Keep pages fast and crawlable\n" +
			"- Publish a sitemap and a sensible `robots.txt`",
	},
	{
		Title: "Bot Detection Techniques",
		Slug:  "bot-detection-techniques",
		Content: "Modern websites need sophisticated bot detection methods.\n\n" +
			"Matching known crawler names in the user agent catches honest bots. " +
			"Clients that never execute JavaScript are a strong hint that something " +
			"automated is on the other end.",
	},
}

// SamplePosts returns the built-in demo posts.
func SamplePosts() []SamplePost {
	out := make([]SamplePost, len(samplePosts))
	copy(out, samplePosts)
	return out
}

// Seeder writes posts into a PostStore.
type Seeder struct {
	posts store.PostStore

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a seeder drawing titles, content and colours from rng.
func New(posts store.PostStore, rng *rand.Rand) *Seeder {
	return &Seeder{posts: posts, rng: rng}
}

// EnsureSamplePosts 在没有任何文章时写入示例文章，返回写入数量。
func (s *Seeder) EnsureSamplePosts(ctx context.Context) (int, error) {
	total, err := s.posts.CountPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	if total > 0 {
		return 0, nil
	}

	created := 0
	for _, sample := range samplePosts {
		post := &db.Post{
			Title:   sample.Title,
			Slug:    sample.Slug,
			Content: sample.Content,
			Image:   s.image(sample.Title),
		}
		if err := s.posts.CreatePost(ctx, post); err != nil {
			if errors.Is(err, store.ErrSlugTaken) {
				continue
			}
			return created, fmt.Errorf("create sample post %q: %w", sample.Slug, err)
		}
		created++
	}

	log := logging.WithComponent("seed")
	log.Info().Int("count", created).Msg("sample posts created")
	return created, nil
}

// GenerateRandomPosts creates n posts with random titles and content.
func (s *Seeder) GenerateRandomPosts(ctx context.Context, n int) ([]db.Post, error) {
	posts := make([]db.Post, 0, n)
	for i := 0; i < n; i++ {
		title, content := s.randomText()
		post := &db.Post{
			Title:   title,
			Content: content,
			Image:   s.image(title),
		}
		if err := s.CreateWithUniqueSlug(ctx, post); err != nil {
			return posts, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// CreateWithUniqueSlug derives the slug from the title when empty and
// appends -2, -3, ... until the store accepts it.
func (s *Seeder) CreateWithUniqueSlug(ctx context.Context, post *db.Post) error {
	base := strings.TrimSpace(post.Slug)
	if base == "" {
		base = Slugify(post.Title)
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		post.Slug = base
		if attempt > 1 {
			post.Slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		err := s.posts.CreatePost(ctx, post)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrSlugTaken) {
			return fmt.Errorf("create post %q: %w", post.Slug, err)
		}
	}
	return fmt.Errorf("no free slug for %q after %d attempts: %w", base, maxSlugAttempts, store.ErrSlugTaken)
}

func (s *Seeder) image(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri, err := placeholder.DataURI(s.rng, title)
	if err != nil {
		log := logging.WithComponent("seed")
		log.Warn().Err(err).Msg("placeholder generation failed")
		return ""
	}
	return uri
}
