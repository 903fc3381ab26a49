package database

import (
	"context"
	"time"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/platform"
	"crosspost/internal/core/profile"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepositoryDatabase struct {
	DB *gorm.DB
}

func NewProfileRepositoryDatabase(db *gorm.DB) *ProfileRepositoryDatabase {
	return &ProfileRepositoryDatabase{DB: db}
}

// Upsert برای هر کاربر و پلتفرم فقط یک پروفایل نگه می‌دارد
func (repo *ProfileRepositoryDatabase) Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	p.UpdatedAt = time.Now().UTC()
	err := repo.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "account_id", "access_token", "access_secret", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return nil, err
	}
	return repo.FindByUserAndPlatform(ctx, p.UserID.String(), p.Platform)
}

func (repo *ProfileRepositoryDatabase) FindByUserAndPlatform(ctx context.Context, userID string, pl platform.Platform) (*profile.Profile, error) {
	var p profile.Profile
	if err := repo.DB.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, pl).
		First(&p).Error; err != nil {
		return nil, notFound(err, "profile", string(pl))
	}
	return &p, nil
}

func (repo *ProfileRepositoryDatabase) FindByUserID(ctx context.Context, userID string) ([]*profile.Profile, error) {
	var profiles []*profile.Profile
	if err := repo.DB.WithContext(ctx).Where("user_id = ?", userID).Order("platform ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (repo *ProfileRepositoryDatabase) Delete(ctx context.Context, userID string, pl platform.Platform) error {
	res := repo.DB.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, pl).
		Delete(&profile.Profile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("profile %s not found", pl)
	}
	return nil
}
