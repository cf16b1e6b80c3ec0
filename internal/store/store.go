package store

import (
	"context"
	"errors"
	"time"

	"github.com/crawlerlog/internal/db"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrSlugTaken = errors.New("slug already exists")
)

// PostStore covers read/write access to blog posts.
type PostStore interface {
	CountPosts(ctx context.Context) (int64, error)
	// ListPosts returns posts ordered by created_at desc, id desc.
	ListPosts(ctx context.Context, offset, limit int) ([]db.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*db.Post, error)
	ListPostsExcept(ctx context.Context, slug string) ([]db.Post, error)
	// CreatePost fails with ErrSlugTaken when the slug is already used.
	CreatePost(ctx context.Context, post *db.Post) error
	IncrementViewCount(ctx context.Context, id uint) error
	DeleteAllPosts(ctx context.Context) (int64, error)
}

// VisitStore covers the append-mostly visit log.
type VisitStore interface {
	CreateVisit(ctx context.Context, visit *db.Visit) error
	// LatestVisit finds the newest visit of a session on a path at or after since.
	LatestVisit(ctx context.Context, sessionID, path string, since time.Time) (*db.Visit, error)
	// UpdateVisitEngagement sets only the non-nil fields.
	UpdateVisitEngagement(ctx context.Context, id uint, timeOnPage, scrollDepth *int) error
	// VisitsSince returns visits with timestamp >= cutoff in chronological order.
	// A zero cutoff returns every visit.
	VisitsSince(ctx context.Context, cutoff time.Time) ([]db.Visit, error)
	DeleteVisitsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the full persistence surface used by the application.
type Store interface {
	PostStore
	VisitStore
	Close() error
}
