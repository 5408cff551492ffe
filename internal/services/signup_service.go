package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/events"
	"github.com/openshelf/openshelf/internal/models"
	pkgauth "github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/logger"
)

// SignupTokenRepository defines the interface for signup token tracking
type SignupTokenRepository interface {
	Create(ctx context.Context, token *models.SignupToken) error
	GetByJTI(ctx context.Context, jti string) (*models.SignupToken, error)
	Consume(ctx context.Context, jti string) error
}

// SignupDetails is what the signup page gets back from validation: the
// payment facts for prefill and cross-check, never the secrets.
type SignupDetails struct {
	CustomerEmail string `json:"customer_email"`
	PlanID        string `json:"plan_id"`
	PlanName      string `json:"plan_name,omitempty"`
	BillingPeriod string `json:"billing_period"`
	AmountCents   int    `json:"amount_cents"`
	Currency      string `json:"currency"`
	Provider      string `json:"provider"`
	OrderID       string `json:"order_id"`
}

// SignupRequest is the account-creation input.
type SignupRequest struct {
	Token    string
	Name     string
	Email    string
	Phone    string
	Password string
}

// SignupService bridges a confirmed payment to exactly one account.
type SignupService struct {
	signer       *auth.SignupTokenSigner
	tokenRepo    SignupTokenRepository
	paymentRepo  PaymentRepository
	userRepo     UserRepository
	planRepo     PricingPlanRepository
	tokenManager *auth.TokenManager
	publisher    EventPublisher
	logger       *slog.Logger
	auditLogger  *logger.AuditLogger
}

func NewSignupService(
	signer *auth.SignupTokenSigner,
	tokenRepo SignupTokenRepository,
	paymentRepo PaymentRepository,
	userRepo UserRepository,
	planRepo PricingPlanRepository,
	tokenManager *auth.TokenManager,
	publisher EventPublisher,
	log *slog.Logger,
	auditLogger *logger.AuditLogger,
) *SignupService {
	return &SignupService{
		signer:       signer,
		tokenRepo:    tokenRepo,
		paymentRepo:  paymentRepo,
		userRepo:     userRepo,
		planRepo:     planRepo,
		tokenManager: tokenManager,
		publisher:    publisher,
		logger:       log,
		auditLogger:  auditLogger,
	}
}

// IssueForPayment mints a signup token for a confirmed payment and
// records its JTI for server-side consumption tracking.
func (s *SignupService) IssueForPayment(ctx context.Context, payment *models.Payment) (string, error) {
	tokenString, jti, expiresAt, err := s.signer.Mint(payment)
	if err != nil {
		s.logger.Error("failed to mint signup token", slog.String("payment_id", payment.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	record := &models.SignupToken{
		JTI:       jti,
		PaymentID: payment.ID,
		Email:     payment.CustomerEmail,
		PlanID:    payment.PlanID,
		ExpiresAt: expiresAt,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		s.logger.Error("failed to store signup token", slog.String("payment_id", payment.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.auditLogger.LogPaymentEvent(logger.AuditEvent{
		EventType: models.AuditEventTypeSignupToken,
		Success:   true,
		Metadata: map[string]string{
			"payment_id": payment.ID,
			"order_id":   payment.OrderID,
		},
	})
	return tokenString, nil
}

// Validate checks a token without consuming it, for the signup page.
// Signature, expiry, consumption state and the payment binding are all
// verified server-side; nothing here trusts a client-side decode.
func (s *SignupService) Validate(ctx context.Context, tokenString string) (*SignupDetails, error) {
	claims, _, err := s.verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	details := &SignupDetails{
		CustomerEmail: claims.CustomerEmail,
		PlanID:        claims.PlanID,
		BillingPeriod: claims.BillingPeriod,
		AmountCents:   claims.AmountCents,
		Currency:      claims.Currency,
		Provider:      claims.Provider,
		OrderID:       claims.OrderID,
	}
	if plan, err := s.planRepo.GetByID(ctx, claims.PlanID); err == nil {
		details.PlanName = plan.Name
	}
	return details, nil
}

// verify runs every check shared by Validate and CompleteSignup: token
// signature and expiry, the JTI record, and the cross-check of claims
// against the stored payment.
func (s *SignupService) verify(ctx context.Context, tokenString string) (*models.SignupClaims, *models.Payment, error) {
	claims, err := s.signer.Verify(tokenString)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.tokenRepo.GetByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to look up signup token", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}
	if record.IsUsed() {
		return nil, nil, models.ErrTokenUsed
	}
	if record.IsExpired() {
		return nil, nil, models.ErrTokenExpired
	}

	payment, err := s.paymentRepo.GetByID(ctx, claims.PaymentID)
	if err != nil {
		s.logger.Error("signup token references missing payment",
			slog.String("payment_id", claims.PaymentID), slog.Any("error", err))
		return nil, nil, models.ErrTokenInvalid
	}
	if payment.Status != models.PaymentStatusConfirmed {
		return nil, nil, models.ErrTokenInvalid
	}

	// The payment row, not the token, is the source of truth; a token
	// whose claims disagree with it has been tampered with or crossed.
	if payment.AmountCents != claims.AmountCents ||
		payment.OrderID != claims.OrderID ||
		payment.PlanID != claims.PlanID {
		s.auditLogger.LogSecurityEvent(logger.AuditEvent{
			EventType:     models.AuditEventTypeSignupToken,
			Success:       false,
			FailureReason: "claims do not match payment record",
			Metadata:      map[string]string{"payment_id": payment.ID},
		})
		return nil, nil, models.ErrTokenInvalid
	}

	return claims, payment, nil
}

// CompleteSignup consumes the token and creates the paid account. The
// consumption step is a single conditional update, so two concurrent
// requests with the same token produce exactly one account.
func (s *SignupService) CompleteSignup(ctx context.Context, req SignupRequest) (*models.User, *TokenPair, error) {
	claims, payment, err := s.verify(ctx, req.Token)
	if err != nil {
		return nil, nil, err
	}

	if err := pkgauth.ValidatePassword(req.Password); err != nil {
		return nil, nil, err
	}

	email := req.Email
	if email == "" {
		email = claims.CustomerEmail
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	plan, err := s.planRepo.GetByID(ctx, claims.PlanID)
	if err != nil {
		s.logger.Error("failed to load plan for signup", slog.String("plan_id", claims.PlanID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	// Consume first: creation failures leave a burned token rather than
	// risking two accounts from one payment.
	if err := s.tokenRepo.Consume(ctx, claims.ID); err != nil {
		if errors.Is(err, models.ErrTokenUsed) {
			s.auditLogger.LogSecurityEvent(logger.AuditEvent{
				EventType:     models.AuditEventTypeSignupToken,
				Success:       false,
				FailureReason: "token already used",
				Metadata:      map[string]string{"payment_id": payment.ID},
			})
			return nil, nil, models.ErrTokenUsed
		}
		s.logger.Error("failed to consume signup token", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		PlanID:       &plan.ID,
	}
	if d := plan.AccessDuration(); d > 0 {
		expiresAt := time.Now().Add(d)
		user.ExpiresAt = &expiresAt
	}

	user, err = s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, nil, models.ErrConflict
		}
		s.logger.Error("failed to create user from signup", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	accessToken, err := s.tokenManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}
	refreshToken, err := s.tokenManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	s.auditLogger.LogPaymentEvent(logger.AuditEvent{
		EventType: models.AuditEventTypeSignupToken,
		UserID:    user.ID,
		Success:   true,
		Metadata: map[string]string{
			"payment_id": payment.ID,
			"plan_id":    plan.ID,
			"action":     "consumed",
		},
	})

	if s.publisher != nil {
		event := events.PaymentEvent{
			Type:          events.RoutingKeySignupCompleted,
			PaymentID:     payment.ID,
			Provider:      payment.Provider,
			PlanID:        plan.ID,
			PlanName:      plan.Name,
			AmountCents:   payment.AmountCents,
			Currency:      payment.Currency,
			CustomerEmail: user.Email,
			OccurredAt:    time.Now(),
		}
		if err := s.publisher.Publish(events.RoutingKeySignupCompleted, event); err != nil {
			s.logger.Warn("failed to publish signup event", slog.Any("error", err))
		}
	}

	return user, &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
