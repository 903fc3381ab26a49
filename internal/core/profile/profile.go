package profile

import (
	"time"

	"crosspost/internal/core/platform"

	"github.com/gofrs/uuid"
)

// Profile اطلاعات اتصال کاربر به یک پلتفرم (توکن دسترسی و شناسه حساب)
type Profile struct {
	ID           uuid.UUID         `gorm:"primary_key;type:char(36)"`
	UserID       uuid.UUID         `gorm:"type:char(36);not null;uniqueIndex:uniq_user_platform"`
	Platform     platform.Platform `gorm:"type:varchar(20);not null;uniqueIndex:uniq_user_platform"`
	Username     string            `gorm:"type:varchar(100)"`
	AccountID    string            `gorm:"type:varchar(100)"` // instagram business account / telegram chat id
	AccessToken  string            `gorm:"type:text;not null"`
	AccessSecret string            `gorm:"type:text"`
	CreatedAt    time.Time         `gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime"`
}
