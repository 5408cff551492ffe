package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/logger"
)

// InviteTokenRepository defines the interface for invite token operations
type InviteTokenRepository interface {
	Create(ctx context.Context, token *models.InviteToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.InviteToken, error)
	MarkAsUsed(ctx context.Context, id string) error
	InvalidateForUser(ctx context.Context, userID string) error
}

// InviteService handles admin-initiated account invitations
type InviteService struct {
	inviteRepo   InviteTokenRepository
	userRepo     UserRepository
	emailService EmailService
	logger       *slog.Logger
	auditLogger  *logger.AuditLogger
	tokenExpiry  time.Duration
}

func NewInviteService(
	inviteRepo InviteTokenRepository,
	userRepo UserRepository,
	emailService EmailService,
	log *slog.Logger,
	auditLogger *logger.AuditLogger,
	tokenExpiry time.Duration,
) *InviteService {
	return &InviteService{
		inviteRepo:   inviteRepo,
		userRepo:     userRepo,
		emailService: emailService,
		logger:       log,
		auditLogger:  auditLogger,
		tokenExpiry:  tokenExpiry,
	}
}

func hashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}

// InviteUser creates a pending account and emails a single-use setup
// link. Only the SHA-256 hash of the link token is stored.
func (s *InviteService) InviteUser(ctx context.Context, actorID, email, name, phone, planID string) (*models.User, error) {
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:  email,
		Name:   name,
		Phone:  phone,
		Role:   models.RoleUser,
		Status: models.StatusPending,
	}
	if planID != "" {
		user.PlanID = &planID
	}

	user, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create invited user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.sendInvite(ctx, user); err != nil {
		return nil, err
	}

	s.auditLogger.LogAdminAction(logger.AuditEvent{
		EventType: models.AuditEventTypeInvite,
		UserID:    actorID,
		Success:   true,
		Metadata:  map[string]string{"invited_user_id": user.ID, "email": logger.SanitizedEmail(email)},
	})
	return user, nil
}

// ResendInvite issues a fresh link and invalidates earlier ones.
func (s *InviteService) ResendInvite(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.Status != models.StatusPending {
		return models.ErrBadRequest
	}

	if err := s.inviteRepo.InvalidateForUser(ctx, userID); err != nil {
		s.logger.Error("failed to invalidate old invites", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return s.sendInvite(ctx, user)
}

func (s *InviteService) sendInvite(ctx context.Context, user *models.User) error {
	plainToken, err := auth.GenerateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate invite token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.tokenExpiry)
	token := &models.InviteToken{
		UserID:    user.ID,
		TokenHash: hashToken(plainToken),
		Email:     user.Email,
		ExpiresAt: expiresAt,
	}
	if err := s.inviteRepo.Create(ctx, token); err != nil {
		s.logger.Error("failed to store invite token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.emailService.SendInviteEmail(ctx, user.Email, plainToken, expiresAt); err != nil {
		s.logger.Error("failed to send invite email",
			slog.String("email", logger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("invite sent",
		slog.String("user_id", user.ID),
		slog.String("email", logger.SanitizedEmail(user.Email)))
	return nil
}

// AcceptInvite consumes the invite token and sets the account's first
// password, activating it. Consumption is an atomic conditional update
// so a token can never activate two sessions.
func (s *InviteService) AcceptInvite(ctx context.Context, plainToken, password string) (*models.User, error) {
	if plainToken == "" {
		return nil, models.ErrTokenInvalid
	}

	token, err := s.inviteRepo.GetByTokenHash(ctx, hashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to look up invite token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if token.IsExpired() {
		return nil, models.ErrTokenExpired
	}
	if token.IsUsed() {
		return nil, models.ErrTokenUsed
	}

	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	if err := s.inviteRepo.MarkAsUsed(ctx, token.ID); err != nil {
		if errors.Is(err, models.ErrTokenUsed) {
			return nil, models.ErrTokenUsed
		}
		s.logger.Error("failed to consume invite token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.userRepo.SetPassword(ctx, token.UserID, passwordHash, true); err != nil {
		s.logger.Error("failed to set password", slog.String("user_id", token.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		s.logger.Error("failed to load activated user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(logger.AuditEvent{
		EventType: models.AuditEventTypeInviteAccepted,
		UserID:    user.ID,
		Success:   true,
	})
	return user, nil
}
