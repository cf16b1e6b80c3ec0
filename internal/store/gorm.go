package store

import (
	"context"
	"errors"
	"time"

	"github.com/crawlerlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of a relational database through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened and migrated gorm connection.
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) CountPosts(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&db.Post{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *GormStore) ListPosts(ctx context.Context, offset, limit int) ([]db.Post, error) {
	var posts []db.Post
	query := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) GetPostBySlug(ctx context.Context, slug string) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) ListPostsExcept(ctx context.Context, slug string) ([]db.Post, error) {
	var posts []db.Post
	if err := s.db.WithContext(ctx).
		Where("slug <> ?", slug).
		Order("id asc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) CreatePost(ctx context.Context, post *db.Post) error {
	insert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(post)
	if insert.Error != nil {
		return insert.Error
	}
	if insert.RowsAffected == 0 {
		return ErrSlugTaken
	}
	return nil
}

func (s *GormStore) IncrementViewCount(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&db.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteAllPosts(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&db.Post{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) CreateVisit(ctx context.Context, visit *db.Visit) error {
	if visit.Timestamp.IsZero() {
		visit.Timestamp = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(visit).Error
}

func (s *GormStore) LatestVisit(ctx context.Context, sessionID, path string, since time.Time) (*db.Visit, error) {
	var visit db.Visit
	if err := s.db.WithContext(ctx).
		Where("session_id = ? AND path = ? AND timestamp >= ?", sessionID, path, since).
		Order("timestamp desc, id desc").
		First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &visit, nil
}

func (s *GormStore) UpdateVisitEngagement(ctx context.Context, id uint, timeOnPage, scrollDepth *int) error {
	updates := map[string]interface{}{}
	if timeOnPage != nil {
		updates["time_on_page"] = *timeOnPage
	}
	if scrollDepth != nil {
		updates["scroll_depth"] = *scrollDepth
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&db.Visit{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) VisitsSince(ctx context.Context, cutoff time.Time) ([]db.Visit, error) {
	var visits []db.Visit
	query := s.db.WithContext(ctx).Order("timestamp asc, id asc")
	if !cutoff.IsZero() {
		query = query.Where("timestamp >= ?", cutoff)
	}
	if err := query.Find(&visits).Error; err != nil {
		return nil, err
	}
	return visits, nil
}

func (s *GormStore) DeleteVisitsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&db.Visit{})
	return result.RowsAffected, result.Error
}
