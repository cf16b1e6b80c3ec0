package db

import "time"

// Post 定义了博客文章模型。
// Image 保存占位图的 data URI，ViewCount 只会递增。
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Image     string    `gorm:"type:text;not null" json:"image"`
	Slug      string    `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	ViewCount int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定自定义表名。
func (Post) TableName() string {
	return "blog_posts"
}

// Path 返回文章详情页的路由，访问记录通过该路径与文章关联。
func (p Post) Path() string {
	return PostPath(p.Slug)
}

// PostPath builds the detail route for a slug.
func PostPath(slug string) string {
	return "/post/" + slug
}
