package trigger

import (
	"context"
	"time"
)

// Store هر پست در حالت PENDING دقیقاً یک trigger دارد که با شناسه‌ی پست کلید می‌خورد.
// Create trigger قبلی همان پست را جایگزین می‌کند.
type Store interface {
	Create(ctx context.Context, postID string, fireAt time.Time) error
	Cancel(ctx context.Context, postID string) error
	Exists(ctx context.Context, postID string) (bool, error)
}

// Lease یک trigger سررسیدشده که برای مدت محدود فقط به یک نود تحویل شده است
type Lease struct {
	PostID string
	Token  string
	FireAt time.Time
}

// Source سمت worker: گرفتن triggerهای سررسیدشده و تأیید اجرای آن‌ها.
// اگر Release صدا زده نشود، پس از پایان lease دوباره تحویل داده می‌شود.
type Source interface {
	Store
	Acquire(ctx context.Context, now time.Time, limit int) ([]Lease, error)
	Release(ctx context.Context, lease Lease) error
}

// Handler callback اجرای trigger
type Handler func(ctx context.Context, postID string) error
