package scheduledpostapp

import (
	"context"
	"errors"
	"strings"
	"time"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/platform"
	"crosspost/internal/core/scheduledpost"
	profilePort "crosspost/internal/ports/profile"
	publisherPort "crosspost/internal/ports/publisher"
	spPort "crosspost/internal/ports/scheduledpost"
	"crosspost/internal/ports/trigger"
	userPort "crosspost/internal/ports/user"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ScheduledPostService ساخت، ویرایش و لغو پست‌های زمان‌بندی‌شده.
// هر پست PENDING دقیقاً یک trigger در Triggers دارد.
type ScheduledPostService struct {
	Repository spPort.ScheduledPostRepository
	Users      userPort.UserRepository
	Profiles   profilePort.ProfileRepository
	Publishers publisherPort.Registry // پلتفرم بدون publisher پذیرفته نمی‌شود
	Triggers   trigger.Store
	MaxRetries int
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewScheduledPostService(
	repo spPort.ScheduledPostRepository,
	users userPort.UserRepository,
	profiles profilePort.ProfileRepository,
	publishers publisherPort.Registry,
	triggers trigger.Store,
	maxRetries int,
	logger *zap.Logger,
) *ScheduledPostService {
	return &ScheduledPostService{
		Repository: repo,
		Users:      users,
		Profiles:   profiles,
		Publishers: publishers,
		Triggers:   triggers,
		MaxRetries: maxRetries,
		Logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// validate ورودی ساخت و ویرایش؛ همه‌ی خطاها از نوع ErrValidation هستند
func (s *ScheduledPostService) validate(ctx context.Context, ownerID string, in spPort.CreateInput) (platform.List, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, errs.Validation("content must not be blank")
	}
	platforms, err := platform.ParseList(in.Platforms)
	if err != nil {
		return nil, errs.Validation("%v", err)
	}
	if !in.ScheduledTime.After(s.Now()) {
		return nil, errs.Validation("scheduled time must be in the future")
	}
	for _, pl := range platforms {
		if _, ok := s.Publishers.Get(pl); !ok {
			return nil, errs.Validation("platform %s is not supported", pl)
		}
		if _, err := s.Profiles.FindByUserAndPlatform(ctx, ownerID, pl); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, errs.Validation("no connected %s profile", pl)
			}
			return nil, err
		}
	}
	return platforms, nil
}

func mediaURL(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil
	}
	return &v
}

// load پست را فقط برای مالک آن برمی‌گرداند؛ پست دیگران NotFound است
func (s *ScheduledPostService) load(ctx context.Context, id, ownerID string) (*scheduledpost.ScheduledPost, error) {
	p, err := s.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID.String() != ownerID {
		return nil, errs.NotFound("scheduled post %s not found", id)
	}
	return p, nil
}

func (s *ScheduledPostService) loadMutable(ctx context.Context, id, ownerID string) (*scheduledpost.ScheduledPost, error) {
	p, err := s.load(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !p.Mutable() {
		return nil, errs.InvalidState("scheduled post %s is %s", id, p.Status)
	}
	return p, nil
}

// Create ذخیره‌ی پست در وضعیت PENDING و ساخت trigger در زمان انتشار.
// اگر trigger ساخته نشود رکورد هم حذف می‌شود.
func (s *ScheduledPostService) Create(ctx context.Context, ownerID string, in spPort.CreateInput) (*spPort.ScheduledPostDTO, error) {
	owner, err := s.Users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	platforms, err := s.validate(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}

	at := in.ScheduledTime.UTC()
	p := &scheduledpost.ScheduledPost{
		ID:            uuid.Must(uuid.NewV4()),
		UserID:        owner.ID,
		Content:       in.Content,
		Platforms:     platforms,
		ScheduledTime: at,
		NextRunAt:     at,
		Status:        scheduledpost.StatusPending,
		MaxRetries:    s.MaxRetries,
		MediaURL:      mediaURL(in.MediaURL),
		Version:       1,
	}
	if err := s.Repository.Create(ctx, p); err != nil {
		return nil, err
	}

	if err := s.Triggers.Create(ctx, p.ID.String(), at); err != nil {
		if derr := s.Repository.DeleteIfVersion(ctx, p.ID.String(), p.Version); derr != nil {
			s.Logger.Error("could not roll back scheduled post after trigger failure",
				zap.String("postID", p.ID.String()), zap.Error(derr))
		}
		return nil, errs.Scheduling(err, "arm trigger for post %s", p.ID)
	}

	s.Logger.Info("post scheduled",
		zap.String("postID", p.ID.String()),
		zap.String("userID", ownerID),
		zap.Strings("platforms", platforms.Strings()),
		zap.Time("at", at))
	return spPort.ToDTO(p), nil
}

// Update فقط در وضعیت PENDING. اگر زمان عوض شود trigger جایگزین می‌شود؛
// در صورت خطای trigger تغییرات رکورد برگردانده می‌شود.
func (s *ScheduledPostService) Update(ctx context.Context, id, ownerID string, in spPort.UpdateInput) (*spPort.ScheduledPostDTO, error) {
	p, err := s.loadMutable(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	platforms, err := s.validate(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}

	before := *p
	at := in.ScheduledTime.UTC()
	timeChanged := !p.ScheduledTime.Equal(at)

	p.Content = in.Content
	p.Platforms = platforms
	p.MediaURL = mediaURL(in.MediaURL)
	p.ScheduledTime = at
	if timeChanged {
		p.NextRunAt = at
	}
	if err := s.Repository.UpdateIfVersion(ctx, p, before.Version); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, errs.InvalidState("scheduled post %s changed while updating", id)
		}
		return nil, err
	}

	if timeChanged {
		if err := s.Triggers.Create(ctx, id, at); err != nil {
			restore := before
			if rerr := s.Repository.UpdateIfVersion(ctx, &restore, p.Version); rerr != nil {
				s.Logger.Error("could not revert scheduled post after trigger failure",
					zap.String("postID", id), zap.Error(rerr))
			}
			return nil, errs.Scheduling(err, "re-arm trigger for post %s", id)
		}
		s.Logger.Info("post rescheduled", zap.String("postID", id), zap.Time("at", at))
	}
	return spPort.ToDTO(p), nil
}

// Cancel حذف trigger و سپس رکورد. اگر حذف رکورد به خاطر تغییر هم‌زمان شکست بخورد
// و پست هنوز PENDING باشد، trigger دوباره ساخته می‌شود.
func (s *ScheduledPostService) Cancel(ctx context.Context, id, ownerID string) error {
	p, err := s.loadMutable(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.Triggers.Cancel(ctx, id); err != nil {
		// ادامه می‌دهیم؛ trigger بدون رکورد هنگام اجرا نادیده گرفته می‌شود
		s.Logger.Error("could not cancel trigger", zap.String("postID", id), zap.Error(err))
	}

	if err := s.Repository.DeleteIfVersion(ctx, id, p.Version); err != nil {
		s.rearmIfPending(ctx, id)
		if errors.Is(err, errs.ErrConflict) {
			return errs.InvalidState("scheduled post %s changed while cancelling", id)
		}
		return err
	}

	s.Logger.Info("post cancelled", zap.String("postID", id), zap.String("userID", ownerID))
	return nil
}

func (s *ScheduledPostService) rearmIfPending(ctx context.Context, id string) {
	cur, err := s.Repository.FindByID(ctx, id)
	if err != nil || cur.Status != scheduledpost.StatusPending {
		return
	}
	if err := s.Triggers.Create(ctx, id, cur.NextRunAt); err != nil {
		s.Logger.Error("could not re-arm trigger", zap.String("postID", id), zap.Error(err))
	}
}

// TriggerNow اجرای فوری از همان مسیر عادی اجرا
func (s *ScheduledPostService) TriggerNow(ctx context.Context, id, ownerID string) (*spPort.ScheduledPostDTO, error) {
	p, err := s.loadMutable(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	before := *p
	now := s.Now()
	p.NextRunAt = now
	if err := s.Repository.UpdateIfVersion(ctx, p, before.Version); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, errs.InvalidState("scheduled post %s changed while triggering", id)
		}
		return nil, err
	}

	if err := s.Triggers.Create(ctx, id, now); err != nil {
		restore := before
		if rerr := s.Repository.UpdateIfVersion(ctx, &restore, p.Version); rerr != nil {
			s.Logger.Error("could not revert scheduled post after trigger failure",
				zap.String("postID", id), zap.Error(rerr))
		}
		return nil, errs.Scheduling(err, "trigger post %s", id)
	}
	s.Logger.Info("post triggered manually", zap.String("postID", id))
	return spPort.ToDTO(p), nil
}

func (s *ScheduledPostService) Get(ctx context.Context, id, ownerID string) (*spPort.ScheduledPostDTO, error) {
	p, err := s.load(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return spPort.ToDTO(p), nil
}

// List پست‌های کاربر؛ status خالی یعنی همه
func (s *ScheduledPostService) List(ctx context.Context, ownerID, status string) ([]*spPort.ScheduledPostDTO, error) {
	st := scheduledpost.Status(strings.ToUpper(strings.TrimSpace(status)))
	switch st {
	case "", scheduledpost.StatusPending, scheduledpost.StatusProcessing,
		scheduledpost.StatusPublished, scheduledpost.StatusFailed:
	default:
		return nil, errs.Validation("unknown status %q", status)
	}

	posts, err := s.Repository.FindByUserID(ctx, ownerID, st)
	if err != nil {
		return nil, err
	}
	out := make([]*spPort.ScheduledPostDTO, 0, len(posts))
	for _, p := range posts {
		out = append(out, spPort.ToDTO(p))
	}
	return out, nil
}
