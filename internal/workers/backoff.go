package workers

import (
	"math/rand/v2"
	"time"
)

// Backoff فاصله‌ی تلاش مجدد: Base * 2^(attempt-1) با سقف Max و نوسان ±Jitter
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64 // صفر یعنی بدون نوسان

	rand func() float64
}

// Delay attempt از ۱ شروع می‌شود. hint زمان پیشنهادی پلتفرم (Retry-After) است
// و اگر بزرگ‌تر باشد جایگزین می‌شود، باز هم با سقف Max.
func (b Backoff) Delay(attempt int, hint time.Duration) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Minute
	}
	maxD := b.Max
	if maxD <= 0 {
		maxD = 30 * time.Minute
	}
	if attempt < 1 {
		attempt = 1
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxD {
			d = maxD
			break
		}
	}
	if d > maxD {
		d = maxD
	}

	if b.Jitter > 0 {
		rnd := b.rand
		if rnd == nil {
			rnd = rand.Float64
		}
		r := (rnd()*2 - 1) * b.Jitter
		d = time.Duration(float64(d) * (1 + r))
		if d < 0 {
			d = 0
		}
	}

	if hint > d {
		d = hint
	}
	if d > maxD {
		d = maxD
	}
	return d
}
