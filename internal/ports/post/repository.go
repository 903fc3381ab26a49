package post

import (
	"context"
	"time"

	"crosspost/internal/core/post"
)

// PostRepository پورت برای ذخیره‌سازی و بازیابی انتشارهای موفق
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) error
	FindByScheduledPostID(ctx context.Context, scheduledPostID string) ([]*post.Post, error)
	FindByIDs(ctx context.Context, ids []string) ([]*post.Post, error)
	FindRecentByUserID(ctx context.Context, userID string, limit int) ([]*post.Post, error)
}

// RecentFeed لیست آخرین انتشارهای هر کاربر در Redis
type RecentFeed interface {
	Push(ctx context.Context, userID, postID string, at time.Time) error
	Recent(ctx context.Context, userID string, start, limit int64) ([]string, error)
}

// DTOها برای UseCase
type PublishInput struct {
	Platform string  `json:"platform" binding:"required"`
	Content  string  `json:"content" binding:"required"`
	MediaURL *string `json:"media_url,omitempty"`
}

type PostDTO struct {
	ID              string    `json:"id"`
	ScheduledPostID string    `json:"scheduled_post_id,omitempty"`
	Platform        string    `json:"platform"`
	PlatformPostID  string    `json:"platform_post_id"`
	Content         string    `json:"content"`
	UserID          string    `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToDTO(p *post.Post) *PostDTO {
	dto := &PostDTO{
		ID:             p.ID.String(),
		Platform:       string(p.Platform),
		PlatformPostID: p.PlatformPostID,
		Content:        p.Content,
		UserID:         p.UserID.String(),
		CreatedAt:      p.CreatedAt,
	}
	if p.ScheduledPostID != nil {
		dto.ScheduledPostID = p.ScheduledPostID.String()
	}
	return dto
}
