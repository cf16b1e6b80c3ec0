package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/crawlerlog/internal/db"
	"github.com/crawlerlog/internal/store"
)

var (
	ErrPostNotFound = errors.New("post not found")
)

const (
	// ExcerptLength is the number of characters kept by Excerpt.
	ExcerptLength = 200
	excerptSuffix = "..."
)

// PostService wraps post related store operations.
type PostService struct {
	posts store.PostStore

	mu  sync.Mutex
	rng *rand.Rand
}

// PostPage is one page of the post listing.
type PostPage struct {
	Posts      []db.Post
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
	HasMore    bool
}

// NewPostService creates a PostService instance.
// rng drives related-post sampling; pass a seeded source for reproducible results.
func NewPostService(posts store.PostStore, rng *rand.Rand) *PostService {
	return &PostService{posts: posts, rng: rng}
}

// List returns posts ordered by created time descending.
func (s *PostService) List(ctx context.Context, page, perPage int) (PostPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 5
	}

	total, err := s.posts.CountPosts(ctx)
	if err != nil {
		return PostPage{}, fmt.Errorf("count posts: %w", err)
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	// 超出末页时直接返回空页，避免 page*perPage 溢出
	if page > totalPages {
		return PostPage{
			Posts:      []db.Post{},
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    false,
		}, nil
	}

	posts, err := s.posts.ListPosts(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return PostPage{}, fmt.Errorf("list posts: %w", err)
	}

	return PostPage{
		Posts:      posts,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(page*perPage) < total,
	}, nil
}

// GetBySlug 根据 slug 获取文章，不存在时返回 ErrPostNotFound。
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*db.Post, error) {
	post, err := s.posts.GetPostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// Related samples up to limit other posts uniformly without replacement.
func (s *PostService) Related(ctx context.Context, excludeSlug string, limit int) ([]db.Post, error) {
	if limit <= 0 {
		return []db.Post{}, nil
	}

	others, err := s.posts.ListPostsExcept(ctx, excludeSlug)
	if err != nil {
		return nil, fmt.Errorf("list related posts: %w", err)
	}

	return s.sample(others, limit), nil
}

func (s *PostService) sample(pool []db.Post, limit int) []db.Post {
	n := limit
	if n > len(pool) {
		n = len(pool)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// partial Fisher-Yates: the first n slots end up a uniform sample
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// IncrementViewCount atomically bumps the post's view counter.
func (s *PostService) IncrementViewCount(ctx context.Context, id uint) error {
	if err := s.posts.IncrementViewCount(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

// Excerpt keeps the first ExcerptLength characters of content followed by an ellipsis.
func Excerpt(content string) string {
	runes := []rune(content)
	if len(runes) > ExcerptLength {
		runes = runes[:ExcerptLength]
	}
	return string(runes) + excerptSuffix
}
