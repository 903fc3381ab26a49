package database

import (
	"context"
	"time"

	"crosspost/internal/ports/trigger"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostTrigger صف triggerها در دیتابیس؛ هر پست حداکثر یک ردیف دارد
type PostTrigger struct {
	PostID      string     `gorm:"primaryKey;type:char(36)"`
	FireAt      time.Time  `gorm:"not null;index"`
	LeaseToken  string     `gorm:"type:char(36);not null"`
	LockedBy    *string    `gorm:"type:varchar(128)"`
	LockedUntil *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

func (PostTrigger) TableName() string { return "post_triggers" }

// TriggerStoreDatabase پیاده‌سازی trigger.Source روی دیتابیس رابطه‌ای.
// هر ردیف با lease_token قفل می‌شود تا فقط یک نود آن را اجرا کند.
type TriggerStoreDatabase struct {
	DB     *gorm.DB
	NodeID string
	Lease  time.Duration
}

func NewTriggerStoreDatabase(db *gorm.DB, nodeID string, lease time.Duration) *TriggerStoreDatabase {
	return &TriggerStoreDatabase{DB: db, NodeID: nodeID, Lease: lease}
}

var _ trigger.Source = (*TriggerStoreDatabase)(nil)

// Create trigger قبلی همین پست را (حتی اگر قفل شده باشد) جایگزین می‌کند
func (s *TriggerStoreDatabase) Create(ctx context.Context, postID string, fireAt time.Time) error {
	t := &PostTrigger{
		PostID:     postID,
		FireAt:     fireAt.UTC(),
		LeaseToken: uuid.Must(uuid.NewV4()).String(),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fire_at", "lease_token", "locked_by", "locked_until", "updated_at"}),
	}).Create(t).Error
}

func (s *TriggerStoreDatabase) Cancel(ctx context.Context, postID string) error {
	return s.DB.WithContext(ctx).Where("post_id = ?", postID).Delete(&PostTrigger{}).Error
}

func (s *TriggerStoreDatabase) Exists(ctx context.Context, postID string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&PostTrigger{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Acquire triggerهای سررسیدشده را قفل می‌کند. قفل با یک UPDATE شرطی روی توکن قبلی گرفته می‌شود
// پس دو نود هرگز یک ردیف را هم‌زمان نمی‌گیرند.
func (s *TriggerStoreDatabase) Acquire(ctx context.Context, now time.Time, limit int) ([]trigger.Lease, error) {
	now = now.UTC()
	var due []PostTrigger
	if err := s.DB.WithContext(ctx).
		Where("fire_at <= ? AND (locked_until IS NULL OR locked_until < ?)", now, now).
		Order("fire_at ASC").
		Limit(limit).
		Find(&due).Error; err != nil {
		return nil, err
	}

	until := now.Add(s.Lease)
	leases := make([]trigger.Lease, 0, len(due))
	for _, t := range due {
		token := uuid.Must(uuid.NewV4()).String()
		res := s.DB.WithContext(ctx).
			Model(&PostTrigger{}).
			Where("post_id = ? AND lease_token = ?", t.PostID, t.LeaseToken).
			Updates(map[string]any{
				"lease_token":  token,
				"locked_by":    s.NodeID,
				"locked_until": until,
			})
		if res.Error != nil {
			return leases, res.Error
		}
		if res.RowsAffected == 0 {
			// نود دیگری زودتر گرفت یا trigger جایگزین شد
			continue
		}
		leases = append(leases, trigger.Lease{PostID: t.PostID, Token: token, FireAt: t.FireAt})
	}
	return leases, nil
}

// Release فقط اگر trigger در این فاصله جایگزین نشده باشد آن را حذف می‌کند
func (s *TriggerStoreDatabase) Release(ctx context.Context, lease trigger.Lease) error {
	return s.DB.WithContext(ctx).
		Where("post_id = ? AND lease_token = ?", lease.PostID, lease.Token).
		Delete(&PostTrigger{}).Error
}
