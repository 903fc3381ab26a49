package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/platform"
	"crosspost/internal/core/profile"
	"crosspost/internal/core/scheduledpost"
	profilePort "crosspost/internal/ports/profile"
	publisherPort "crosspost/internal/ports/publisher"
	spPort "crosspost/internal/ports/scheduledpost"
	"crosspost/internal/ports/trigger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// triggerهایی که زودتر از NextRunAt برسند (trigger جایگزین‌شده) نادیده گرفته می‌شوند
const earlyFireTolerance = 2 * time.Second

// مهلت ذخیره‌ی نتیجه پس از قطع context اصلی
const persistTimeout = 10 * time.Second

// PublicationLedger دفتر انتشارهای موفق؛ از انتشار دوباره روی یک پلتفرم در تلاش مجدد جلوگیری می‌کند
type PublicationLedger interface {
	PublishedPlatforms(ctx context.Context, scheduledPostID string) (map[platform.Platform]string, error)
	RecordPublished(ctx context.Context, sp *scheduledpost.ScheduledPost, prof *profile.Profile, pl platform.Platform, platformPostID string) error
}

// PlatformOutcome نتیجه‌ی انتشار روی یک پلتفرم
type PlatformOutcome struct {
	Platform       platform.Platform
	PlatformPostID string
	Err            *publisherPort.Error
	Skipped        bool // قبلاً منتشر شده بود
}

func (o PlatformOutcome) Succeeded() bool { return o.Err == nil }

type PostExecutor struct {
	Repository  spPort.ScheduledPostRepository
	Profiles    profilePort.ProfileRepository
	Publishers  publisherPort.Registry
	Triggers    trigger.Store
	Ledger      PublicationLedger
	Backoff     Backoff
	CallTimeout time.Duration
	MaxParallel int
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewPostExecutor(
	repo spPort.ScheduledPostRepository,
	profiles profilePort.ProfileRepository,
	publishers publisherPort.Registry,
	triggers trigger.Store,
	ledger PublicationLedger,
	backoff Backoff,
	callTimeout time.Duration,
	maxParallel int,
	logger *zap.Logger,
) *PostExecutor {
	return &PostExecutor{
		Repository:  repo,
		Profiles:    profiles,
		Publishers:  publishers,
		Triggers:    triggers,
		Ledger:      ledger,
		Backoff:     backoff,
		CallTimeout: callTimeout,
		MaxParallel: maxParallel,
		Logger:      logger,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Execute اجرای یک trigger: بارگذاری، بررسی وضعیت، گرفتن پست با CAS، انتشار و ذخیره‌ی نتیجه.
// فقط خطاهای پیش از گرفتن پست برگردانده می‌شوند تا trigger دوباره تحویل داده شود.
func (e *PostExecutor) Execute(ctx context.Context, postID string) error {
	p, err := e.Repository.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			e.Logger.Debug("trigger for missing post ignored", zap.String("postID", postID))
			return nil
		}
		return fmt.Errorf("load post %s: %w", postID, err)
	}
	if p.Status != scheduledpost.StatusPending {
		e.Logger.Debug("post is not pending, skipping", zap.String("postID", postID), zap.String("status", string(p.Status)))
		return nil
	}
	if p.NextRunAt.After(e.Now().Add(earlyFireTolerance)) {
		e.Logger.Debug("superseded trigger ignored", zap.String("postID", postID), zap.Time("nextRunAt", p.NextRunAt))
		return nil
	}

	claimed := *p
	claimed.Status = scheduledpost.StatusProcessing
	if err := e.Repository.UpdateIfVersion(ctx, &claimed, p.Version); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			e.Logger.Debug("post claimed by another worker", zap.String("postID", postID))
			return nil
		}
		return fmt.Errorf("claim post %s: %w", postID, err)
	}
	e.Logger.Info("➡ Processing scheduled post", zap.String("postID", postID), zap.Int("attempt", claimed.RetryCount+1))

	// پس از گرفتن پست، خاموش شدن worker نباید اجرا را نیمه‌کاره رها کند
	e.run(context.WithoutCancel(ctx), &claimed)
	return nil
}

func (e *PostExecutor) run(ctx context.Context, p *scheduledpost.ScheduledPost) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("panic while executing post", zap.String("postID", p.ID.String()), zap.Any("panic", r), zap.Stack("stack"))
			e.markFailed(ctx, p, fmt.Sprintf("internal error: %v", r))
		}
	}()

	outcomes, err := e.fanOut(ctx, p)
	if err == nil {
		err = e.finish(ctx, p, outcomes)
	}
	if err != nil {
		e.Logger.Error("❌ Error executing post", zap.String("postID", p.ID.String()), zap.Error(err))
		e.markFailed(ctx, p, "internal error: "+err.Error())
	}
}

// fanOut انتشار مستقل روی هر پلتفرم؛ شکست یک پلتفرم بقیه را متوقف نمی‌کند
func (e *PostExecutor) fanOut(ctx context.Context, p *scheduledpost.ScheduledPost) ([]PlatformOutcome, error) {
	published, err := e.Ledger.PublishedPlatforms(ctx, p.ID.String())
	if err != nil {
		return nil, fmt.Errorf("load publication ledger: %w", err)
	}

	outcomes := make([]PlatformOutcome, len(p.Platforms))
	g := new(errgroup.Group)
	if e.MaxParallel > 0 {
		g.SetLimit(e.MaxParallel)
	}
	for i, pl := range p.Platforms {
		if id, ok := published[pl]; ok {
			outcomes[i] = PlatformOutcome{Platform: pl, PlatformPostID: id, Skipped: true}
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.Logger.Error("panic while publishing", zap.String("postID", p.ID.String()), zap.String("platform", string(pl)), zap.Any("panic", r))
					outcomes[i] = PlatformOutcome{
						Platform: pl,
						Err:      publisherPort.NewError(pl, publisherPort.KindPlatformAPI, fmt.Sprintf("panic: %v", r)),
					}
				}
			}()
			outcomes[i] = e.publishOne(ctx, p, pl)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

func (e *PostExecutor) publishOne(ctx context.Context, p *scheduledpost.ScheduledPost, pl platform.Platform) (out PlatformOutcome) {
	out.Platform = pl
	pub, ok := e.Publishers.Get(pl)
	if !ok {
		out.Err = publisherPort.NewError(pl, publisherPort.KindUnsupported, "no publisher for platform")
		return out
	}
	prof, err := e.Profiles.FindByUserAndPlatform(ctx, p.UserID.String(), pl)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			out.Err = publisherPort.NewError(pl, publisherPort.KindProfileNotFound, "no connected profile")
		} else {
			out.Err = publisherPort.Classify(pl, fmt.Errorf("load profile: %w", err))
		}
		return out
	}

	id, err := e.callPublisher(ctx, pub, publisherPort.Request{
		Content:  p.Content,
		MediaURL: p.Media(),
		Credentials: publisherPort.Credentials{
			AccessToken:  prof.AccessToken,
			AccessSecret: prof.AccessSecret,
			AccountID:    prof.AccountID,
			Username:     prof.Username,
		},
	})
	if err != nil {
		out.Err = publisherPort.Classify(pl, err)
		e.Logger.Warn("⚠️ publish failed", zap.String("postID", p.ID.String()), zap.String("platform", string(pl)), zap.Error(err))
		return out
	}

	out.PlatformPostID = id
	if err := e.Ledger.RecordPublished(ctx, p, prof, pl, id); err != nil {
		e.Logger.Error("published but could not record in ledger",
			zap.String("postID", p.ID.String()), zap.String("platform", string(pl)), zap.Error(err))
	}
	e.Logger.Info("✅ Published", zap.String("postID", p.ID.String()), zap.String("platform", string(pl)), zap.String("platformPostID", id))
	return out
}

// callPublisher هر فراخوانی مهلت جداگانه دارد و panic آن به خطا تبدیل می‌شود
func (e *PostExecutor) callPublisher(ctx context.Context, pub publisherPort.Publisher, req publisherPort.Request) (id string, err error) {
	if e.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.CallTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = publisherPort.NewError(pub.Platform(), publisherPort.KindPlatformAPI, fmt.Sprintf("publisher panic: %v", r))
		}
	}()
	return pub.Publish(ctx, req)
}

// finish جمع‌بندی نتایج و ذخیره با CAS روی نسخه‌ی گرفته‌شده
func (e *PostExecutor) finish(ctx context.Context, p *scheduledpost.ScheduledPost, outcomes []PlatformOutcome) error {
	var failures []string
	var hint time.Duration
	for _, o := range outcomes {
		if o.Succeeded() {
			continue
		}
		failures = append(failures, o.Err.Error())
		if o.Err.Kind == publisherPort.KindRateLimit && o.Err.RetryAfter > hint {
			hint = o.Err.RetryAfter
		}
	}

	postID := p.ID.String()
	claimedVersion := p.Version
	next := *p

	switch {
	case len(failures) == 0:
		next.Status = scheduledpost.StatusPublished
		next.ErrorMessage = nil
	case p.RetryCount < p.MaxRetries:
		summary := strings.Join(failures, "; ")
		next.RetryCount++
		next.Status = scheduledpost.StatusPending
		next.ErrorMessage = &summary
		next.NextRunAt = e.Now().Add(e.Backoff.Delay(next.RetryCount, hint))
	default:
		summary := strings.Join(failures, "; ")
		next.Status = scheduledpost.StatusFailed
		next.ErrorMessage = &summary
	}

	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := e.Repository.UpdateIfVersion(pctx, &next, claimedVersion); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			e.Logger.Warn("post changed during execution, result dropped", zap.String("postID", postID))
			return nil
		}
		return fmt.Errorf("persist result: %w", err)
	}
	*p = next

	switch next.Status {
	case scheduledpost.StatusPending:
		// رکورد پیش از trigger ذخیره شده؛ اگر ساخت trigger شکست بخورد reconcile آن را برمی‌گرداند
		if err := e.Triggers.Create(pctx, postID, next.NextRunAt); err != nil {
			e.Logger.Error("could not re-arm trigger for retry", zap.String("postID", postID), zap.Error(err))
		}
		e.Logger.Info("🔁 Post scheduled for retry",
			zap.String("postID", postID),
			zap.Int("retry", next.RetryCount),
			zap.Time("at", next.NextRunAt),
			zap.String("error", *next.ErrorMessage))
	case scheduledpost.StatusPublished:
		e.cancelTrigger(pctx, postID)
		e.Logger.Info("✅ Post published", zap.String("postID", postID))
	default:
		e.cancelTrigger(pctx, postID)
		e.Logger.Warn("❌ Post failed", zap.String("postID", postID), zap.String("error", *next.ErrorMessage))
	}
	return nil
}

func (e *PostExecutor) cancelTrigger(ctx context.Context, postID string) {
	if err := e.Triggers.Cancel(ctx, postID); err != nil {
		e.Logger.Warn("could not cancel trigger", zap.String("postID", postID), zap.Error(err))
	}
}

// markFailed تلاش بهترین‌حالت برای ثبت FAILED پس از خطای غیرمنتظره
func (e *PostExecutor) markFailed(ctx context.Context, p *scheduledpost.ScheduledPost, msg string) {
	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	failed := *p
	failed.Status = scheduledpost.StatusFailed
	failed.ErrorMessage = &msg
	if err := e.Repository.UpdateIfVersion(pctx, &failed, p.Version); err != nil {
		e.Logger.Error("could not mark post failed", zap.String("postID", p.ID.String()), zap.Error(err))
		return
	}
	e.cancelTrigger(pctx, p.ID.String())
}
