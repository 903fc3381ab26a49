package scheduledpost

import (
	"time"

	"crosspost/internal/core/platform"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPublished  Status = "PUBLISHED"
	StatusFailed     Status = "FAILED"
)

// DefaultMaxRetries تعداد تلاش مجدد پیش‌فرض
const DefaultMaxRetries = 3

type ScheduledPost struct {
	ID            uuid.UUID     `gorm:"primary_key;type:char(36)"`
	UserID        uuid.UUID     `gorm:"type:char(36);not null;index"`
	Content       string        `gorm:"type:text;not null"`
	Platforms     platform.List `gorm:"type:varchar(255);not null"`
	ScheduledTime time.Time     `gorm:"not null"`
	NextRunAt     time.Time     `gorm:"not null"`
	Status        Status        `gorm:"type:varchar(20);not null;index"`
	RetryCount    int           `gorm:"not null"`
	MaxRetries    int           `gorm:"not null"`
	ErrorMessage  *string       `gorm:"type:text"`
	MediaURL      *string       `gorm:"type:text"`
	Version       int64         `gorm:"not null"`
	CreatedAt     time.Time     `gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime"`
}

// Mutable پست فقط در وضعیت PENDING قابل ویرایش است
func (p *ScheduledPost) Mutable() bool {
	return p.Status == StatusPending
}

func (p *ScheduledPost) Media() string {
	if p.MediaURL == nil {
		return ""
	}
	return *p.MediaURL
}
