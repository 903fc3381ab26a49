package postapp

import (
	"context"
	"errors"
	"strings"
	"time"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/platform"
	postEntity "crosspost/internal/core/post"
	"crosspost/internal/core/profile"
	"crosspost/internal/core/scheduledpost"
	postPort "crosspost/internal/ports/post"
	profilePort "crosspost/internal/ports/profile"
	publisherPort "crosspost/internal/ports/publisher"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// PostService دفتر انتشارهای موفق، انتشار فوری و فید آخرین انتشارهای کاربر
type PostService struct {
	PostRepository postPort.PostRepository
	Feed           postPort.RecentFeed // اختیاری
	Profiles       profilePort.ProfileRepository
	Publishers     publisherPort.Registry
	CallTimeout    time.Duration
	Logger         *zap.Logger
}

func NewPostService(
	postRepo postPort.PostRepository,
	feed postPort.RecentFeed,
	profiles profilePort.ProfileRepository,
	publishers publisherPort.Registry,
	callTimeout time.Duration,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		PostRepository: postRepo,
		Feed:           feed,
		Profiles:       profiles,
		Publishers:     publishers,
		CallTimeout:    callTimeout,
		Logger:         logger,
	}
}

// PublishedPlatforms پلتفرم‌هایی که این پست قبلاً روی آن‌ها منتشر شده، همراه با شناسه‌ی پست در پلتفرم
func (s *PostService) PublishedPlatforms(ctx context.Context, scheduledPostID string) (map[platform.Platform]string, error) {
	posts, err := s.PostRepository.FindByScheduledPostID(ctx, scheduledPostID)
	if err != nil {
		return nil, err
	}
	out := make(map[platform.Platform]string, len(posts))
	for _, p := range posts {
		out[p.Platform] = p.PlatformPostID
	}
	return out, nil
}

// RecordPublished ثبت یک انتشار موفق؛ خطای فید فقط لاگ می‌شود
func (s *PostService) RecordPublished(ctx context.Context, sp *scheduledpost.ScheduledPost, prof *profile.Profile, pl platform.Platform, platformPostID string) error {
	spID := sp.ID
	_, err := s.record(ctx, &postEntity.Post{
		ScheduledPostID: &spID,
		Platform:        pl,
		UserID:          sp.UserID,
		ProfileID:       prof.ID,
		PlatformPostID:  platformPostID,
		Content:         sp.Content,
	})
	return err
}

func (s *PostService) record(ctx context.Context, p *postEntity.Post) (*postEntity.Post, error) {
	p.ID = uuid.Must(uuid.NewV4())
	p.CreatedAt = time.Now().UTC()
	if err := s.PostRepository.Create(ctx, p); err != nil {
		return nil, err
	}
	if s.Feed != nil {
		if err := s.Feed.Push(ctx, p.UserID.String(), p.ID.String(), p.CreatedAt); err != nil {
			s.Logger.Warn("could not push post to recent feed", zap.String("postID", p.ID.String()), zap.Error(err))
		}
	}
	return p, nil
}

// PublishNow انتشار فوری روی یک پلتفرم بدون زمان‌بندی و تلاش مجدد.
// خطای اعتبارسنجی پلتفرم ErrValidation و بقیه‌ی خطاهای پلتفرم ErrPublish هستند.
func (s *PostService) PublishNow(ctx context.Context, userID string, in postPort.PublishInput) (*postPort.PostDTO, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, errs.Validation("content must not be blank")
	}
	pl, err := platform.Parse(in.Platform)
	if err != nil {
		return nil, errs.Validation("%v", err)
	}
	pub, ok := s.Publishers.Get(pl)
	if !ok {
		return nil, errs.Validation("platform %s is not supported", pl)
	}
	prof, err := s.Profiles.FindByUserAndPlatform(ctx, userID, pl)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("no connected %s profile", pl)
		}
		return nil, err
	}

	req := publisherPort.Request{
		Content: content,
		Credentials: publisherPort.Credentials{
			AccessToken:  prof.AccessToken,
			AccessSecret: prof.AccessSecret,
			AccountID:    prof.AccountID,
			Username:     prof.Username,
		},
	}
	if in.MediaURL != nil {
		req.MediaURL = strings.TrimSpace(*in.MediaURL)
	}

	callCtx := ctx
	if s.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
		defer cancel()
	}
	remoteID, err := pub.Publish(callCtx, req)
	if err != nil {
		pe := publisherPort.Classify(pl, err)
		s.Logger.Warn("immediate publish failed", zap.String("userID", userID), zap.String("platform", string(pl)), zap.Error(pe))
		if pe.Kind == publisherPort.KindValidation {
			return nil, errs.Validation("%v", pe)
		}
		return nil, errs.Publish(pe)
	}

	p, err := s.record(context.WithoutCancel(ctx), &postEntity.Post{
		Platform:       pl,
		UserID:         prof.UserID,
		ProfileID:      prof.ID,
		PlatformPostID: remoteID,
		Content:        content,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("published immediately", zap.String("userID", userID), zap.String("platform", string(pl)), zap.String("platformPostID", remoteID))
	return postPort.ToDTO(p), nil
}

// ListRecent آخرین انتشارها؛ اگر فید در دسترس نباشد یا خالی باشد از دیتابیس خوانده می‌شود
func (s *PostService) ListRecent(ctx context.Context, userID string, limit int) ([]*postPort.PostDTO, error) {
	if limit <= 0 {
		limit = 20
	}

	var posts []*postEntity.Post
	if s.Feed != nil {
		ids, err := s.Feed.Recent(ctx, userID, 0, int64(limit))
		if err != nil {
			s.Logger.Warn("recent feed unavailable, falling back to database", zap.String("userID", userID), zap.Error(err))
		} else if len(ids) > 0 {
			posts, err = s.PostRepository.FindByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
		}
	}
	if len(posts) == 0 {
		var err error
		posts, err = s.PostRepository.FindRecentByUserID(ctx, userID, limit)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*postPort.PostDTO, 0, len(posts))
	for _, p := range posts {
		out = append(out, postPort.ToDTO(p))
	}
	return out, nil
}
