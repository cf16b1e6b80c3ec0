package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crawlerlog/internal/db"
	"github.com/crawlerlog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormStore(t *testing.T) store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	s := store.NewGormStore(gdb)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newBoltStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "crawlerlog.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var backends = []struct {
	name string
	open func(t *testing.T) store.Store
}{
	{name: "gorm", open: newGormStore},
	{name: "bolt", open: newBoltStore},
}

func intPtr(v int) *int { return &v }

func TestPostLifecycle(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			s := backend.open(t)
			base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

			for i, slug := range []string{"a", "b", "c"} {
				post := &db.Post{
					Title:     strings.ToUpper(slug),
					Content:   "content " + slug,
					Slug:      slug,
					CreatedAt: base.Add(time.Duration(i) * time.Hour),
				}
				require.NoError(t, s.CreatePost(ctx, post))
				assert.NotZero(t, post.ID)
			}

			err := s.CreatePost(ctx, &db.Post{Title: "dup", Slug: "a"})
			assert.ErrorIs(t, err, store.ErrSlugTaken)

			total, err := s.CountPosts(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)

			page, err := s.ListPosts(ctx, 0, 2)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "c", page[0].Slug)
			assert.Equal(t, "b", page[1].Slug)

			page, err = s.ListPosts(ctx, 2, 2)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "a", page[0].Slug)

			others, err := s.ListPostsExcept(ctx, "a")
			require.NoError(t, err)
			assert.Len(t, others, 2)
			for _, post := range others {
				assert.NotEqual(t, "a", post.Slug)
			}

			post, err := s.GetPostBySlug(ctx, "b")
			require.NoError(t, err)
			require.NoError(t, s.IncrementViewCount(ctx, post.ID))
			require.NoError(t, s.IncrementViewCount(ctx, post.ID))
			post, err = s.GetPostBySlug(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, int64(2), post.ViewCount)

			_, err = s.GetPostBySlug(ctx, "missing")
			assert.ErrorIs(t, err, store.ErrNotFound)
			assert.ErrorIs(t, s.IncrementViewCount(ctx, 9999), store.ErrNotFound)

			removed, err := s.DeleteAllPosts(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), removed)
			total, err = s.CountPosts(ctx)
			require.NoError(t, err)
			assert.Zero(t, total)

			// slugs are free again after clearing
			require.NoError(t, s.CreatePost(ctx, &db.Post{Title: "again", Slug: "a"}))
		})
	}
}

func TestVisitLifecycle(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			s := backend.open(t)
			now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

			old := &db.Visit{SessionID: "s1", Path: "/", Timestamp: now.Add(-48 * time.Hour)}
			first := &db.Visit{SessionID: "s1", Path: "/post/a", Timestamp: now.Add(-10 * time.Minute)}
			second := &db.Visit{SessionID: "s1", Path: "/post/a", Timestamp: now.Add(-5 * time.Minute)}
			other := &db.Visit{SessionID: "s2", Path: "/post/a", Timestamp: now.Add(-1 * time.Minute)}
			for _, visit := range []*db.Visit{old, first, second, other} {
				require.NoError(t, s.CreateVisit(ctx, visit))
				assert.NotZero(t, visit.ID)
			}

			latest, err := s.LatestVisit(ctx, "s1", "/post/a", now.Add(-30*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, second.ID, latest.ID)

			_, err = s.LatestVisit(ctx, "s1", "/post/a", now)
			assert.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, s.UpdateVisitEngagement(ctx, second.ID, intPtr(42), nil))
			require.NoError(t, s.UpdateVisitEngagement(ctx, second.ID, nil, intPtr(75)))
			assert.ErrorIs(t, s.UpdateVisitEngagement(ctx, 9999, intPtr(1), nil), store.ErrNotFound)

			recent, err := s.VisitsSince(ctx, now.Add(-time.Hour))
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, first.ID, recent[0].ID)
			assert.Equal(t, other.ID, recent[2].ID)

			updated := recent[1]
			require.NotNil(t, updated.TimeOnPage)
			require.NotNil(t, updated.ScrollDepth)
			assert.Equal(t, 42, *updated.TimeOnPage)
			assert.Equal(t, 75, *updated.ScrollDepth)
			assert.Nil(t, recent[0].TimeOnPage)

			all, err := s.VisitsSince(ctx, time.Time{})
			require.NoError(t, err)
			assert.Len(t, all, 4)

			removed, err := s.DeleteVisitsBefore(ctx, now.Add(-24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), removed)

			all, err = s.VisitsSince(ctx, time.Time{})
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestBoltStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "crawlerlog.bolt")

	s, err := store.NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreatePost(ctx, &db.Post{Title: "persisted", Slug: "persisted"}))
	require.NoError(t, s.Close())

	s, err = store.NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	post, err := s.GetPostBySlug(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "persisted", post.Title)
}
