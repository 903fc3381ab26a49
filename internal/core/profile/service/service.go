package profileapp

import (
	"context"
	"strings"

	"crosspost/internal/core/errs"
	"crosspost/internal/core/platform"
	profileEntity "crosspost/internal/core/profile"
	profilePort "crosspost/internal/ports/profile"
	userPort "crosspost/internal/ports/user"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ProfileService اتصال حساب کاربر به پلتفرم‌ها
type ProfileService struct {
	ProfileRepository profilePort.ProfileRepository
	UserRepository    userPort.UserRepository
	Logger            *zap.Logger
}

func NewProfileService(repo profilePort.ProfileRepository, users userPort.UserRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		ProfileRepository: repo,
		UserRepository:    users,
		Logger:            logger,
	}
}

// Connect ایجاد یا جایگزینی اطلاعات اتصال یک پلتفرم
func (s *ProfileService) Connect(ctx context.Context, userID string, in profilePort.ConnectInput) (*profilePort.ProfileDTO, error) {
	u, err := s.UserRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pl, err := platform.Parse(in.Platform)
	if err != nil {
		return nil, errs.Validation("%v", err)
	}
	if strings.TrimSpace(in.AccessToken) == "" {
		return nil, errs.Validation("access token is required")
	}

	p, err := s.ProfileRepository.Upsert(ctx, &profileEntity.Profile{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       u.ID,
		Platform:     pl,
		Username:     strings.TrimSpace(in.Username),
		AccountID:    strings.TrimSpace(in.AccountID),
		AccessToken:  in.AccessToken,
		AccessSecret: in.AccessSecret,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("profile connected", zap.String("userID", userID), zap.String("platform", string(pl)))
	return profilePort.ToDTO(p), nil
}

func (s *ProfileService) List(ctx context.Context, userID string) ([]*profilePort.ProfileDTO, error) {
	profiles, err := s.ProfileRepository.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*profilePort.ProfileDTO, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profilePort.ToDTO(p))
	}
	return out, nil
}

// Disconnect پست‌های در انتظار که به این پلتفرم نیاز دارند هنگام اجرا خطای profile_not_found می‌گیرند
func (s *ProfileService) Disconnect(ctx context.Context, userID, rawPlatform string) error {
	pl, err := platform.Parse(rawPlatform)
	if err != nil {
		return errs.Validation("%v", err)
	}
	if err := s.ProfileRepository.Delete(ctx, userID, pl); err != nil {
		return err
	}
	s.Logger.Info("profile disconnected", zap.String("userID", userID), zap.String("platform", string(pl)))
	return nil
}
