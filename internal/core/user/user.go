package user

import (
	"time"

	"github.com/gofrs/uuid"
)

// User مالک پست‌های زمان‌بندی‌شده؛ احراز هویت در سرویس جداگانه انجام می‌شود
type User struct {
	ID        uuid.UUID `gorm:"primary_key;type:char(36)"`
	Name      string    `gorm:"not null"`
	Family    string    `gorm:"not null"`
	Username  string    `gorm:"type:varchar(64);unique;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
