package userapp

import (
	"context"
	"errors"
	"strings"

	"crosspost/internal/core/errs"
	userEntity "crosspost/internal/core/user"
	userPort "crosspost/internal/ports/user"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// UserService سرویس مدیریت کاربران
type UserService struct {
	UserRepository userPort.UserRepository
	Logger         *zap.Logger
}

func NewUserService(repo userPort.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		UserRepository: repo,
		Logger:         logger,
	}
}

// RegisterUser ثبت‌نام کاربر جدید؛ توکن ورود توسط سرویس احراز هویت صادر می‌شود
func (s *UserService) RegisterUser(ctx context.Context, name, family, username string) (*userPort.UserDTO, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.Validation("username is required")
	}

	// بررسی اینکه آیا کاربر با این یوزرنیم قبلاً ثبت شده است
	existing, err := s.UserRepository.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, errs.InvalidState("username %q already taken", username)
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	u, err := s.UserRepository.Create(ctx, &userEntity.User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     strings.TrimSpace(name),
		Family:   strings.TrimSpace(family),
		Username: username,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("user registered", zap.String("userID", u.ID.String()), zap.String("username", u.Username))
	return toDTO(u), nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*userPort.UserDTO, error) {
	u, err := s.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(u), nil
}

func toDTO(u *userEntity.User) *userPort.UserDTO {
	return &userPort.UserDTO{
		ID:       u.ID.String(),
		Name:     u.Name,
		Family:   u.Family,
		Username: u.Username,
	}
}
