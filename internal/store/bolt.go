package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/crawlerlog/internal/db"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketPosts     = []byte("posts")
	bucketPostSlugs = []byte("post_slugs")
	bucketVisits    = []byte("visits")
)

// BoltStore implements Store using a single bbolt file
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bolt file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := db.EnsureParentDir(path); err != nil {
		return nil, err
	}

	bdb, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPosts, bucketPostSlugs, bucketVisits} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	return &BoltStore{db: bdb}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Post operations

func (s *BoltStore) CountPosts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var total int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPosts).ForEach(func(_, _ []byte) error {
			total++
			return nil
		})
	})
	return total, err
}

func (s *BoltStore) allPosts(tx *bolt.Tx) ([]db.Post, error) {
	var posts []db.Post
	err := tx.Bucket(bucketPosts).ForEach(func(_, v []byte) error {
		var post db.Post
		if err := json.Unmarshal(v, &post); err != nil {
			return err
		}
		posts = append(posts, post)
		return nil
	})
	return posts, err
}

func (s *BoltStore) ListPosts(ctx context.Context, offset, limit int) ([]db.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var posts []db.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		posts, err = s.allPosts(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return []db.Post{}, nil
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *BoltStore) GetPostBySlug(ctx context.Context, slug string) (*db.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var post db.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketPostSlugs).Get([]byte(slug))
		if id == nil {
			return ErrNotFound
		}
		data := tx.Bucket(bucketPosts).Get(id)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *BoltStore) ListPostsExcept(ctx context.Context, slug string) ([]db.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var posts []db.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		all, err := s.allPosts(tx)
		if err != nil {
			return err
		}
		for _, post := range all {
			if post.Slug != slug {
				posts = append(posts, post)
			}
		}
		return nil
	})
	return posts, err
}

func (s *BoltStore) CreatePost(ctx context.Context, post *db.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		slugs := tx.Bucket(bucketPostSlugs)
		if slugs.Get([]byte(post.Slug)) != nil {
			return ErrSlugTaken
		}

		b := tx.Bucket(bucketPosts)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		post.ID = uint(seq)
		if post.CreatedAt.IsZero() {
			post.CreatedAt = now
		}
		post.UpdatedAt = now

		data, err := json.Marshal(post)
		if err != nil {
			return err
		}
		if err := b.Put(itob(seq), data); err != nil {
			return err
		}
		return slugs.Put([]byte(post.Slug), itob(seq))
	})
}

func (s *BoltStore) IncrementViewCount(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPosts)
		key := itob(uint64(id))
		data := b.Get(key)
		if data == nil {
			return ErrNotFound
		}
		var post db.Post
		if err := json.Unmarshal(data, &post); err != nil {
			return err
		}
		post.ViewCount++
		updated, err := json.Marshal(&post)
		if err != nil {
			return err
		}
		return b.Put(key, updated)
	})
}

func (s *BoltStore) DeleteAllPosts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var removed int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketPosts).ForEach(func(_, _ []byte) error {
			removed++
			return nil
		}); err != nil {
			return err
		}
		for _, bucket := range [][]byte{bucketPosts, bucketPostSlugs} {
			if err := tx.DeleteBucket(bucket); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}

// Visit operations

func (s *BoltStore) CreateVisit(ctx context.Context, visit *db.Visit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVisits)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		visit.ID = uint(seq)
		if visit.Timestamp.IsZero() {
			visit.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(visit)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

func (s *BoltStore) LatestVisit(ctx context.Context, sessionID, path string, since time.Time) (*db.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var latest *db.Visit
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVisits).ForEach(func(_, v []byte) error {
			var visit db.Visit
			if err := json.Unmarshal(v, &visit); err != nil {
				return err
			}
			if visit.SessionID != sessionID || visit.Path != path || visit.Timestamp.Before(since) {
				return nil
			}
			// keys ascend, so a later key wins ties on timestamp
			if latest == nil || !visit.Timestamp.Before(latest.Timestamp) {
				found := visit
				latest = &found
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *BoltStore) UpdateVisitEngagement(ctx context.Context, id uint, timeOnPage, scrollDepth *int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeOnPage == nil && scrollDepth == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVisits)
		key := itob(uint64(id))
		data := b.Get(key)
		if data == nil {
			return ErrNotFound
		}
		var visit db.Visit
		if err := json.Unmarshal(data, &visit); err != nil {
			return err
		}
		if timeOnPage != nil {
			v := *timeOnPage
			visit.TimeOnPage = &v
		}
		if scrollDepth != nil {
			v := *scrollDepth
			visit.ScrollDepth = &v
		}
		updated, err := json.Marshal(&visit)
		if err != nil {
			return err
		}
		return b.Put(key, updated)
	})
}

func (s *BoltStore) VisitsSince(ctx context.Context, cutoff time.Time) ([]db.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	visits := []db.Visit{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVisits).ForEach(func(_, v []byte) error {
			var visit db.Visit
			if err := json.Unmarshal(v, &visit); err != nil {
				return err
			}
			if !cutoff.IsZero() && visit.Timestamp.Before(cutoff) {
				return nil
			}
			visits = append(visits, visit)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(visits, func(i, j int) bool {
		if !visits[i].Timestamp.Equal(visits[j].Timestamp) {
			return visits[i].Timestamp.Before(visits[j].Timestamp)
		}
		return visits[i].ID < visits[j].ID
	})
	return visits, nil
}

func (s *BoltStore) DeleteVisitsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var removed int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVisits)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var visit db.Visit
			if err := json.Unmarshal(v, &visit); err != nil {
				return err
			}
			if visit.Timestamp.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = int64(len(stale))
		return nil
	})
	return removed, err
}
