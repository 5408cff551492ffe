package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openshelf/openshelf/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	SetPassword(ctx context.Context, id, passwordHash string, activate bool) error
	TouchLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserService handles user management business logic
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// ListUsers returns a page of users with the total count. Search matches
// name or email.
func (s *UserService) ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.repo.List(ctx, search, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return users, total, nil
}

// UpdateUser applies admin edits: name, phone, role, status, plan and
// access expiry.
func (s *UserService) UpdateUser(ctx context.Context, id string, updated *models.User) (*models.User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for update", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if updated.Role != models.RoleUser && updated.Role != models.RoleAdmin {
		return nil, models.ErrBadRequest
	}
	switch updated.Status {
	case models.StatusPending, models.StatusActive, models.StatusInactive:
	default:
		return nil, models.ErrBadRequest
	}

	existing.Name = updated.Name
	existing.Phone = updated.Phone
	existing.Role = updated.Role
	existing.Status = updated.Status
	existing.PlanID = updated.PlanID
	existing.ExpiresAt = updated.ExpiresAt

	user, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user updated", slog.String("user_id", id))
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted", slog.String("user_id", id))
	return nil
}
