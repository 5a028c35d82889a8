package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
	"github.com/vibesocial/backend/repository"
)

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		logger: logger,
	}
}

// UpdateInput carries the editable profile fields.
type UpdateInput struct {
	Username  string
	Avatar    string
	Bio       string
	Location  string
	Phone     string
	Website   string
	BirthDate string
	Gender    string
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

// UpdateProfile replaces the editable fields and returns the stored user.
func (uc *UseCase) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.Avatar = in.Avatar
	user.Bio = in.Bio
	user.Location = in.Location
	user.Phone = in.Phone
	user.Website = in.Website
	user.BirthDate = in.BirthDate
	user.Gender = in.Gender

	if err := uc.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Info("profile updated", zap.String("user_id", userID))
	return user, nil
}
