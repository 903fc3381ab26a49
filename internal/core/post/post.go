package post

import (
	"time"

	"crosspost/internal/core/platform"

	"github.com/gofrs/uuid"
)

// Post یک انتشار موفق روی یک پلتفرم؛ برای جلوگیری از انتشار تکراری در تلاش مجدد استفاده می‌شود.
// ScheduledPostID برای انتشار فوری خالی است.
type Post struct {
	ID              uuid.UUID         `gorm:"primary_key;type:char(36)"`
	ScheduledPostID *uuid.UUID        `gorm:"type:char(36);uniqueIndex:uniq_scheduled_platform"`
	Platform        platform.Platform `gorm:"type:varchar(20);not null;uniqueIndex:uniq_scheduled_platform"`
	UserID          uuid.UUID         `gorm:"type:char(36);not null;index"`
	ProfileID       uuid.UUID         `gorm:"type:char(36);not null"`
	PlatformPostID  string            `gorm:"type:varchar(128);not null"`
	Content         string            `gorm:"type:text;not null"`
	CreatedAt       time.Time         `gorm:"autoCreateTime"`
}
