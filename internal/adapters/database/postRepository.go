package database

import (
	"context"

	"crosspost/internal/core/post"

	"gorm.io/gorm"
)

// PostRepositoryDatabase دفتر انتشارهای موفق
type PostRepositoryDatabase struct {
	DB *gorm.DB
}

// NewPostRepositoryDatabase سازنده PostRepositoryDatabase
func NewPostRepositoryDatabase(db *gorm.DB) *PostRepositoryDatabase {
	return &PostRepositoryDatabase{DB: db}
}

func (repo *PostRepositoryDatabase) Create(ctx context.Context, p *post.Post) error {
	return repo.DB.WithContext(ctx).Create(p).Error
}

func (repo *PostRepositoryDatabase) FindByScheduledPostID(ctx context.Context, scheduledPostID string) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.DB.WithContext(ctx).Where("scheduled_post_id = ?", scheduledPostID).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindByIDs ترتیب خروجی با ترتیب ids یکسان است؛ شناسه‌های ناموجود حذف می‌شوند
func (repo *PostRepositoryDatabase) FindByIDs(ctx context.Context, ids []string) ([]*post.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*post.Post
	if err := repo.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*post.Post, len(found))
	for _, p := range found {
		byID[p.ID.String()] = p
	}
	posts := make([]*post.Post, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) FindRecentByUserID(ctx context.Context, userID string, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
