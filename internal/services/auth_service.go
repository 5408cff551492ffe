package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/models"
	pkgauth "github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/logger"
)

// TokenRevocationRepository defines the interface for tracking revoked JWTs
type TokenRevocationRepository interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PasswordResetRepository defines the interface for reset token operations
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	MarkAsUsed(ctx context.Context, id string) error
	InvalidateForUser(ctx context.Context, userID string) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles login, token refresh and password recovery
type AuthService struct {
	userRepo     UserRepository
	revokeRepo   TokenRevocationRepository
	resetRepo    PasswordResetRepository
	tokenManager *auth.TokenManager
	emailService EmailService
	logger       *slog.Logger
	auditLogger  *logger.AuditLogger
	resetExpiry  time.Duration
}

func NewAuthService(
	userRepo UserRepository,
	revokeRepo TokenRevocationRepository,
	resetRepo PasswordResetRepository,
	tokenManager *auth.TokenManager,
	emailService EmailService,
	log *slog.Logger,
	auditLogger *logger.AuditLogger,
	resetExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		revokeRepo:   revokeRepo,
		resetRepo:    resetRepo,
		tokenManager: tokenManager,
		emailService: emailService,
		logger:       log,
		auditLogger:  auditLogger,
		resetExpiry:  resetExpiry,
	}
}

// Login verifies credentials and account standing, then issues a token
// pair. Pending, inactive and expired accounts are denied even with a
// correct password.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthAttempt(logger.AuditEvent{
				EventType:     models.AuditEventTypeLogin,
				IPAddress:     ipAddress,
				Success:       false,
				FailureReason: "unknown email",
			})
			return nil, nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	if user.PasswordHash == "" || pkgauth.ComparePassword(user.PasswordHash, password) != nil {
		s.auditLogger.LogAuthAttempt(logger.AuditEvent{
			EventType:     models.AuditEventTypeLogin,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: "bad credentials",
		})
		return nil, nil, models.ErrUnauthorized
	}

	if err := user.CanAuthenticate(); err != nil {
		s.auditLogger.LogAuthAttempt(logger.AuditEvent{
			EventType:     models.AuditEventTypeLogin,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: err.Error(),
		})
		return nil, nil, err
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, models.ErrInternalServer
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(logger.AuditEvent{
		EventType: models.AuditEventTypeLogin,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})
	return user, pair, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := s.tokenManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, err
	}
	refreshToken, err := s.tokenManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates a refresh token: the old token is revoked and a fresh
// pair issued, so a replayed refresh token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenManager.ValidateToken(refreshToken)
	if err != nil || claims.Type != "refresh" {
		return nil, models.ErrUnauthorized
	}

	revoked, err := s.revokeRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check revocation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if revoked {
		return nil, models.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	if err := user.CanAuthenticate(); err != nil {
		return nil, err
	}

	if err := s.revokeRepo.Revoke(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("failed to revoke rotated token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	return pair, nil
}

// Logout revokes both tokens of the session.
func (s *AuthService) Logout(ctx context.Context, userID string, tokens ...string) error {
	for _, tokenString := range tokens {
		if tokenString == "" {
			continue
		}
		claims, err := s.tokenManager.ValidateToken(tokenString)
		if err != nil {
			continue
		}
		if err := s.revokeRepo.Revoke(ctx, claims.ID, userID, claims.ExpiresAt.Time); err != nil {
			s.logger.Error("failed to revoke token", slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.auditLogger.LogAuthAttempt(logger.AuditEvent{
		EventType: models.AuditEventTypeLogout,
		UserID:    userID,
		Success:   true,
	})
	return nil
}

// RequestPasswordReset mails a reset link. Always reports success to the
// caller so the endpoint does not reveal which emails have accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to look up user for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.resetRepo.InvalidateForUser(ctx, user.ID); err != nil {
		s.logger.Error("failed to invalidate old reset tokens", slog.Any("error", err))
		return models.ErrInternalServer
	}

	plainToken, err := pkgauth.GenerateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.resetExpiry)
	token := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(plainToken),
		Email:     user.Email,
		ExpiresAt: expiresAt,
	}
	if err := s.resetRepo.Create(ctx, token); err != nil {
		s.logger.Error("failed to store reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, user.Email, plainToken, expiresAt); err != nil {
		s.logger.Error("failed to send reset email",
			slog.String("email", logger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, plainToken, password string) error {
	if plainToken == "" {
		return models.ErrTokenInvalid
	}

	token, err := s.resetRepo.GetByTokenHash(ctx, hashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTokenInvalid
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if token.IsExpired() {
		return models.ErrTokenExpired
	}
	if token.IsUsed() {
		return models.ErrTokenUsed
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return err
	}

	if err := s.resetRepo.MarkAsUsed(ctx, token.ID); err != nil {
		if errors.Is(err, models.ErrTokenUsed) {
			return models.ErrTokenUsed
		}
		s.logger.Error("failed to consume reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.userRepo.SetPassword(ctx, token.UserID, passwordHash, false); err != nil {
		s.logger.Error("failed to set password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(logger.AuditEvent{
		EventType: models.AuditEventTypePasswordReset,
		UserID:    token.UserID,
		Success:   true,
	})
	return nil
}
