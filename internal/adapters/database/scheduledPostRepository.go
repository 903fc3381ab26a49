package database

import (
	"context"
	"time"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/scheduledpost"

	"gorm.io/gorm"
)

// ScheduledPostRepositoryDatabase پیاده‌سازی ScheduledPostRepository برای دیتابیس
type ScheduledPostRepositoryDatabase struct {
	DB *gorm.DB
}

func NewScheduledPostRepositoryDatabase(db *gorm.DB) *ScheduledPostRepositoryDatabase {
	return &ScheduledPostRepositoryDatabase{DB: db}
}

func (repo *ScheduledPostRepositoryDatabase) Create(ctx context.Context, p *scheduledpost.ScheduledPost) error {
	return repo.DB.WithContext(ctx).Create(p).Error
}

func (repo *ScheduledPostRepositoryDatabase) FindByID(ctx context.Context, id string) (*scheduledpost.ScheduledPost, error) {
	var p scheduledpost.ScheduledPost
	if err := repo.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err, "scheduled post", id)
	}
	return &p, nil
}

// FindByUserID پست‌های کاربر به ترتیب زمان انتشار؛ status خالی یعنی همه
func (repo *ScheduledPostRepositoryDatabase) FindByUserID(ctx context.Context, userID string, status scheduledpost.Status) ([]*scheduledpost.ScheduledPost, error) {
	var posts []*scheduledpost.ScheduledPost
	q := repo.DB.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("scheduled_time ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindByStatus برای کارهای نگهداری؛ updatedBefore صفر یعنی بدون محدودیت زمانی
func (repo *ScheduledPostRepositoryDatabase) FindByStatus(ctx context.Context, status scheduledpost.Status, updatedBefore time.Time, limit int) ([]*scheduledpost.ScheduledPost, error) {
	var posts []*scheduledpost.ScheduledPost
	q := repo.DB.WithContext(ctx).Where("status = ?", status)
	if !updatedBefore.IsZero() {
		q = q.Where("updated_at < ?", updatedBefore)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("next_run_at ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateIfVersion فقط اگر نسخه‌ی فعلی برابر expected باشد ذخیره می‌کند و نسخه را یکی بالا می‌برد
func (repo *ScheduledPostRepositoryDatabase) UpdateIfVersion(ctx context.Context, p *scheduledpost.ScheduledPost, expected int64) error {
	now := time.Now().UTC()
	res := repo.DB.WithContext(ctx).
		Model(&scheduledpost.ScheduledPost{}).
		Where("id = ? AND version = ?", p.ID, expected).
		Updates(map[string]any{
			"content":        p.Content,
			"platforms":      p.Platforms,
			"scheduled_time": p.ScheduledTime,
			"next_run_at":    p.NextRunAt,
			"status":         p.Status,
			"retry_count":    p.RetryCount,
			"max_retries":    p.MaxRetries,
			"error_message":  p.ErrorMessage,
			"media_url":      p.MediaURL,
			"version":        expected + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrConflict
	}
	p.Version = expected + 1
	p.UpdatedAt = now
	return nil
}

func (repo *ScheduledPostRepositoryDatabase) DeleteIfVersion(ctx context.Context, id string, expected int64) error {
	res := repo.DB.WithContext(ctx).
		Where("id = ? AND version = ?", id, expected).
		Delete(&scheduledpost.ScheduledPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrConflict
	}
	return nil
}
