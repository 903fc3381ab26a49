package workers

import (
	"context"
	"errors"
	"time"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/scheduledpost"
	spPort "crosspost/internal/ports/scheduledpost"
	"crosspost/internal/ports/trigger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Maintenance بازیابی پست‌هایی که در PROCESSING گیر کرده‌اند و بازسازی triggerهای گم‌شده
type Maintenance struct {
	Repository spPort.ScheduledPostRepository
	Triggers   trigger.Store
	StaleAfter time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewMaintenance(repo spPort.ScheduledPostRepository, triggers trigger.Store, staleAfter time.Duration, logger *zap.Logger) *Maintenance {
	return &Maintenance{
		Repository: repo,
		Triggers:   triggers,
		StaleAfter: staleAfter,
		Logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecoverStale پست‌هایی که بیش از StaleAfter در PROCESSING مانده‌اند (نود از کار افتاده)
// به PENDING برمی‌گردند و فوراً اجرا می‌شوند. شمارنده‌ی تلاش تغییر نمی‌کند.
func (m *Maintenance) RecoverStale(ctx context.Context) (int, error) {
	now := m.Now()
	stale, err := m.Repository.FindByStatus(ctx, scheduledpost.StatusProcessing, now.Add(-m.StaleAfter), 0)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, p := range stale {
		expected := p.Version
		p.Status = scheduledpost.StatusPending
		p.NextRunAt = now
		if err := m.Repository.UpdateIfVersion(ctx, p, expected); err != nil {
			if errors.Is(err, errs.ErrConflict) {
				continue
			}
			return recovered, err
		}
		if err := m.Triggers.Create(ctx, p.ID.String(), now); err != nil {
			m.Logger.Error("could not re-arm recovered post", zap.String("postID", p.ID.String()), zap.Error(err))
			continue
		}
		recovered++
		m.Logger.Warn("recovered stale post", zap.String("postID", p.ID.String()))
	}
	return recovered, nil
}

// Reconcile برای هر پست PENDING بدون trigger، trigger را در NextRunAt می‌سازد
func (m *Maintenance) Reconcile(ctx context.Context) (int, error) {
	pending, err := m.Repository.FindByStatus(ctx, scheduledpost.StatusPending, time.Time{}, 0)
	if err != nil {
		return 0, err
	}
	rearmed := 0
	for _, p := range pending {
		id := p.ID.String()
		ok, err := m.Triggers.Exists(ctx, id)
		if err != nil {
			return rearmed, err
		}
		if ok {
			continue
		}
		if err := m.Triggers.Create(ctx, id, p.NextRunAt); err != nil {
			return rearmed, err
		}
		rearmed++
		m.Logger.Warn("re-armed missing trigger", zap.String("postID", id), zap.Time("at", p.NextRunAt))
	}
	return rearmed, nil
}

// RunOnce هر دو کار؛ در شروع برنامه و طبق زمان‌بندی cron اجرا می‌شود
func (m *Maintenance) RunOnce(ctx context.Context) {
	if n, err := m.RecoverStale(ctx); err != nil {
		m.Logger.Error("stale recovery failed", zap.Error(err))
	} else if n > 0 {
		m.Logger.Info("stale posts recovered", zap.Int("count", n))
	}
	if n, err := m.Reconcile(ctx); err != nil {
		m.Logger.Error("trigger reconciliation failed", zap.Error(err))
	} else if n > 0 {
		m.Logger.Info("triggers re-armed", zap.Int("count", n))
	}
}

// Start زمان‌بندی RunOnce با cron؛ فراخواننده باید Stop را صدا بزند
func (m *Maintenance) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	logger := cronLogger{s: m.Logger.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, func() { m.RunOnce(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	m.Logger.Info("🚀 Maintenance scheduled", zap.String("schedule", schedule))
	return c, nil
}

// cronLogger پیاده‌سازی cron.Logger روی zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
