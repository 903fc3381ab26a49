package profile

import (
	"context"
	"time"

	"crosspost/internal/core/platform"
	"crosspost/internal/core/profile"
)

// ProfileRepository پورت برای اطلاعات اتصال کاربر به پلتفرم‌ها
type ProfileRepository interface {
	Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error)
	FindByUserAndPlatform(ctx context.Context, userID string, p platform.Platform) (*profile.Profile, error)
	FindByUserID(ctx context.Context, userID string) ([]*profile.Profile, error)
	Delete(ctx context.Context, userID string, p platform.Platform) error
}

// DTOها برای UseCase؛ توکن‌ها هرگز برگردانده نمی‌شوند
type ConnectInput struct {
	Platform     string `json:"platform" binding:"required"`
	Username     string `json:"username"`
	AccountID    string `json:"account_id"`
	AccessToken  string `json:"access_token" binding:"required"`
	AccessSecret string `json:"access_secret"`
}

type ProfileDTO struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Username  string    `json:"username"`
	AccountID string    `json:"account_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToDTO(p *profile.Profile) *ProfileDTO {
	return &ProfileDTO{
		ID:        p.ID.String(),
		Platform:  string(p.Platform),
		Username:  p.Username,
		AccountID: p.AccountID,
		UpdatedAt: p.UpdatedAt,
	}
}
