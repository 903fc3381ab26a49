package scheduledpost

import (
	"context"
	"time"

	"crosspost/internal/core/scheduledpost"
)

// ScheduledPostRepository پورت ذخیره‌سازی پست‌های زمان‌بندی‌شده.
// UpdateIfVersion و DeleteIfVersion فقط وقتی اعمال می‌شوند که نسخه‌ی ذخیره‌شده برابر expected باشد؛
// در غیر این صورت errs.ErrConflict برمی‌گردد.
type ScheduledPostRepository interface {
	Create(ctx context.Context, p *scheduledpost.ScheduledPost) error
	FindByID(ctx context.Context, id string) (*scheduledpost.ScheduledPost, error)
	FindByUserID(ctx context.Context, userID string, status scheduledpost.Status) ([]*scheduledpost.ScheduledPost, error)
	FindByStatus(ctx context.Context, status scheduledpost.Status, updatedBefore time.Time, limit int) ([]*scheduledpost.ScheduledPost, error)
	UpdateIfVersion(ctx context.Context, p *scheduledpost.ScheduledPost, expected int64) error
	DeleteIfVersion(ctx context.Context, id string, expected int64) error
}

// DTOها برای UseCase
type CreateInput struct {
	Content       string    `json:"content" binding:"required"`
	Platforms     []string  `json:"platforms" binding:"required"`
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
	MediaURL      *string   `json:"media_url,omitempty"`
}

type UpdateInput = CreateInput

type ScheduledPostDTO struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Content       string    `json:"content"`
	Platforms     []string  `json:"platforms"`
	Status        string    `json:"status"`
	ScheduledTime time.Time `json:"scheduled_time"`
	NextRunAt     time.Time `json:"next_run_at"`
	MediaURL      *string   `json:"media_url,omitempty"`
	RetryCount    int       `json:"retry_count"`
	MaxRetries    int       `json:"max_retries"`
	ErrorMessage  *string   `json:"error_message"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ToDTO(p *scheduledpost.ScheduledPost) *ScheduledPostDTO {
	return &ScheduledPostDTO{
		ID:            p.ID.String(),
		UserID:        p.UserID.String(),
		Content:       p.Content,
		Platforms:     p.Platforms.Strings(),
		Status:        string(p.Status),
		ScheduledTime: p.ScheduledTime,
		NextRunAt:     p.NextRunAt,
		MediaURL:      p.MediaURL,
		RetryCount:    p.RetryCount,
		MaxRetries:    p.MaxRetries,
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
