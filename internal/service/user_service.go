package service

import (
	"context"

	"zanara/internal/domain"
	"zanara/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	if !user.UserType.Valid() {
		s.logger.Warn().Str("user_type", user.UserType.String()).Str("email", user.Email).Msg("unknown profile role, defaulting to model")
		user.UserType = models.RoleModel
	}
	return s.repo.CreateOrUpdateUser(ctx, user)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) UpdateUserActivity(ctx context.Context, id int64) error {
	return s.repo.UpdateUserActivity(ctx, id)
}

func (s *UserService) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	return s.repo.GetActiveUsers(ctx, days)
}
