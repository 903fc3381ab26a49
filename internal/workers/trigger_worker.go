package workers

import (
	"context"
	"time"

	"crosspost/internal/ports/trigger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type TriggerWorker struct {
	Source       trigger.Source
	Handler      trigger.Handler
	BatchSize    int // تعداد triggerهایی که در هر دور گرفته می‌شوند
	Workers      int // تعداد اجرای هم‌زمان
	PollInterval time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

func NewTriggerWorker(
	source trigger.Source,
	handler trigger.Handler,
	batchSize, workers int,
	pollInterval time.Duration,
	logger *zap.Logger,
) *TriggerWorker {
	return &TriggerWorker{
		Source:       source,
		Handler:      handler,
		BatchSize:    batchSize,
		Workers:      workers,
		PollInterval: pollInterval,
		Logger:       logger,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run گوش دادن به triggerهای سررسیدشده تا قطع ctx؛ پیش از بازگشت منتظر اجراهای در جریان می‌ماند
func (w *TriggerWorker) Run(ctx context.Context) {
	w.Logger.Info("🚀 TriggerWorker started", zap.Int("batch", w.BatchSize), zap.Int("workers", w.Workers))
	interval := w.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("🛑 TriggerWorker stopped")
			return
		case <-timer.C:
		}

		n := w.Poll(ctx)
		if n > 0 && n >= w.BatchSize {
			// صف پر است؛ بدون مکث دور بعد
			timer.Reset(0)
		} else {
			timer.Reset(interval)
		}
	}
}

// Poll یک دور گرفتن و اجرای triggerها؛ تعداد triggerهای گرفته‌شده را برمی‌گرداند
func (w *TriggerWorker) Poll(ctx context.Context) int {
	limit := w.BatchSize
	if limit <= 0 {
		limit = 100
	}
	leases, err := w.Source.Acquire(ctx, w.Now(), limit)
	if err != nil {
		if ctx.Err() == nil {
			w.Logger.Error("❌ Error acquiring due triggers", zap.Error(err))
		}
		return 0
	}
	if len(leases) == 0 {
		return 0
	}
	w.Logger.Debug("🔔 Acquired due triggers", zap.Int("count", len(leases)))

	g := new(errgroup.Group)
	if w.Workers > 0 {
		g.SetLimit(w.Workers)
	}
	for _, l := range leases {
		g.Go(func() error {
			w.handle(ctx, l)
			return nil
		})
	}
	_ = g.Wait()
	return len(leases)
}

func (w *TriggerWorker) handle(ctx context.Context, l trigger.Lease) {
	if err := w.Handler(ctx, l.PostID); err != nil {
		// lease آزاد نمی‌شود تا پس از انقضا دوباره تحویل داده شود
		w.Logger.Warn("⚠️ trigger handler failed, will be redelivered", zap.String("postID", l.PostID), zap.Error(err))
		return
	}
	if err := w.Source.Release(context.WithoutCancel(ctx), l); err != nil {
		w.Logger.Warn("⚠️ could not release trigger", zap.String("postID", l.PostID), zap.Error(err))
	}
}
