package platforms

import (
	"context"
	"net/http"

	"crosspost/internal/core/platform"
	publisherPort "crosspost/internal/ports/publisher"

	"golang.org/x/time/rate"
)

// Settings آدرس APIها و محدودیت نرخ هر پلتفرم
type Settings struct {
	XBaseURL            string
	InstagramBaseURL    string
	InstagramAPIVersion string
	TelegramAPIURL      string
	RatePerSec          int
}

// Registry نگاشت پلتفرم به publisher؛ پلتفرم‌های بدون publisher پشتیبانی نمی‌شوند
type Registry struct {
	publishers map[platform.Platform]publisherPort.Publisher
}

func NewRegistry(perSec int, pubs ...publisherPort.Publisher) *Registry {
	r := &Registry{publishers: make(map[platform.Platform]publisherPort.Publisher, len(pubs))}
	for _, p := range pubs {
		if perSec > 0 {
			p = Throttle(p, rate.NewLimiter(rate.Limit(perSec), perSec))
		}
		r.publishers[p.Platform()] = p
	}
	return r
}

// NewDefaultRegistry publisherهای X، Instagram و Telegram
func NewDefaultRegistry(s Settings, client *http.Client) *Registry {
	return NewRegistry(s.RatePerSec,
		NewXPublisher(s.XBaseURL, client),
		NewInstagramPublisher(s.InstagramBaseURL, s.InstagramAPIVersion, client),
		NewTelegramPublisher(s.TelegramAPIURL, client),
	)
}

func (r *Registry) Get(p platform.Platform) (publisherPort.Publisher, bool) {
	pub, ok := r.publishers[p]
	return pub, ok
}

type throttled struct {
	next    publisherPort.Publisher
	limiter *rate.Limiter
}

// Throttle هر فراخوانی Publish را پشت limiter نگه می‌دارد
func Throttle(p publisherPort.Publisher, l *rate.Limiter) publisherPort.Publisher {
	return &throttled{next: p, limiter: l}
}

func (t *throttled) Platform() platform.Platform { return t.next.Platform() }

func (t *throttled) Publish(ctx context.Context, req publisherPort.Request) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		e := publisherPort.NewError(t.next.Platform(), publisherPort.KindRateLimit, "client-side rate limit: "+err.Error())
		e.Err = err
		return "", e
	}
	return t.next.Publish(ctx, req)
}
