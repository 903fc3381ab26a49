package database

import (
	"crosspost/internal/core/post"
	"crosspost/internal/core/profile"
	"crosspost/internal/core/scheduledpost"
	"crosspost/internal/core/user"

	"gorm.io/gorm"
)

// AutoMigrate ساخت جدول‌ها
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&profile.Profile{},
		&scheduledpost.ScheduledPost{},
		&post.Post{},
		&PostTrigger{},
	)
}
