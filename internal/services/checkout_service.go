package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/openshelf/openshelf/internal/events"
	"github.com/openshelf/openshelf/internal/gateway"
	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/pkg/logger"
)

// PaymentRepository defines the interface for payment records
type PaymentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByProviderEvent(ctx context.Context, provider, providerEventID string) (*models.Payment, error)
	RecordConfirmed(ctx context.Context, p *models.Payment) (*models.Payment, bool, error)
	List(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error)
}

// EventPublisher publishes payment lifecycle events for the notifier.
type EventPublisher interface {
	Publish(routingKey string, event events.PaymentEvent) error
}

// CheckoutService orchestrates provider checkout creation and payment
// confirmation. Provider branching lives entirely in the adapter
// registry; this service never inspects provider strings beyond routing.
type CheckoutService struct {
	registry    *gateway.Registry
	planRepo    PricingPlanRepository
	paymentRepo PaymentRepository
	publisher   EventPublisher
	logger      *slog.Logger
	auditLogger *logger.AuditLogger
	successURL  string
	cancelURL   string
}

func NewCheckoutService(
	registry *gateway.Registry,
	planRepo PricingPlanRepository,
	paymentRepo PaymentRepository,
	publisher EventPublisher,
	log *slog.Logger,
	auditLogger *logger.AuditLogger,
	successURL, cancelURL string,
) *CheckoutService {
	return &CheckoutService{
		registry:    registry,
		planRepo:    planRepo,
		paymentRepo: paymentRepo,
		publisher:   publisher,
		logger:      log,
		auditLogger: auditLogger,
		successURL:  successURL,
		cancelURL:   cancelURL,
	}
}

// CreateCheckout starts a hosted checkout for an active plan. Each call
// gets a fresh order id and idempotency key: a retried attempt is a new
// attempt, never a blind replay.
func (s *CheckoutService) CreateCheckout(ctx context.Context, provider, planID, billingPeriod, customerEmail string) (*gateway.CheckoutSession, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, models.ErrProviderUnavailable
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load plan for checkout", slog.String("plan_id", planID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !plan.IsActive {
		return nil, models.ErrPlanInactive
	}
	if billingPeriod == "" {
		billingPeriod = plan.BillingPeriod
	}
	if billingPeriod != plan.BillingPeriod {
		return nil, models.ErrBadRequest
	}

	orderID := uuid.New().String()
	session, err := adapter.CreateCheckout(ctx, gateway.CheckoutRequest{
		Plan:           plan,
		BillingPeriod:  billingPeriod,
		CustomerEmail:  customerEmail,
		OrderID:        orderID,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		IdempotencyKey: uuid.New().String(),
	})
	if err != nil {
		s.logger.Error("checkout creation failed",
			slog.String("provider", provider),
			slog.String("plan_id", planID),
			slog.Any("error", err))
		s.auditLogger.LogPaymentEvent(logger.AuditEvent{
			EventType:     models.AuditEventTypeCheckoutCreated,
			Success:       false,
			FailureReason: "provider error",
			Metadata:      map[string]string{"provider": provider, "plan_id": planID},
		})
		if errors.Is(err, models.ErrProviderUnavailable) {
			return nil, models.ErrProviderUnavailable
		}
		return nil, models.ErrProviderFailure
	}

	s.auditLogger.LogPaymentEvent(logger.AuditEvent{
		EventType: models.AuditEventTypeCheckoutCreated,
		Success:   true,
		Metadata: map[string]string{
			"provider": provider,
			"plan_id":  planID,
			"order_id": orderID,
		},
	})
	return session, nil
}

// HandleWebhook authenticates and records a provider notification. The
// signature is verified before any payload field is read; a rejected
// signature is logged as a security event and nothing is processed.
func (s *CheckoutService) HandleWebhook(r *http.Request, provider string, body []byte) error {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return models.ErrProviderUnavailable
	}

	result, err := adapter.VerifyWebhook(r, body)
	if err != nil {
		if errors.Is(err, models.ErrWebhookSignature) {
			s.auditLogger.LogSecurityEvent(logger.AuditEvent{
				EventType:     models.AuditEventTypeWebhookRejected,
				Success:       false,
				FailureReason: "signature verification failed",
				Metadata:      map[string]string{"provider": provider},
			})
			return models.ErrWebhookSignature
		}
		s.logger.Error("webhook processing failed", slog.String("provider", provider), slog.Any("error", err))
		return err
	}
	if result == nil {
		// Event type we do not act on.
		return nil
	}

	if _, _, err := s.recordPayment(r.Context(), result); err != nil {
		return err
	}
	return nil
}

// ConfirmRedirect reconciles a success redirect against the provider and
// records the payment. Safe to race with the webhook: both paths upsert
// on the same provider event key.
func (s *CheckoutService) ConfirmRedirect(ctx context.Context, provider string, params map[string]string) (*models.Payment, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, models.ErrProviderUnavailable
	}

	result, err := adapter.ReconcileRedirect(ctx, params)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("redirect reconciliation failed", slog.String("provider", provider), slog.Any("error", err))
		return nil, models.ErrProviderFailure
	}

	payment, _, err := s.recordPayment(ctx, result)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *CheckoutService) recordPayment(ctx context.Context, result *gateway.PaymentResult) (*models.Payment, bool, error) {
	payment := &models.Payment{
		Provider:        result.Provider,
		ProviderRef:     result.ProviderRef,
		ProviderEventID: result.ProviderEventID,
		TransactionID:   result.TransactionID,
		OrderID:         result.OrderID,
		PlanID:          result.PlanID,
		BillingPeriod:   result.BillingPeriod,
		AmountCents:     result.AmountCents,
		Currency:        result.Currency,
		CustomerEmail:   result.CustomerEmail,
		RawPayload:      result.RawPayload,
	}

	stored, inserted, err := s.paymentRepo.RecordConfirmed(ctx, payment)
	if err != nil {
		s.logger.Error("failed to record payment",
			slog.String("provider", result.Provider),
			slog.String("provider_event_id", result.ProviderEventID),
			slog.Any("error", err))
		return nil, false, models.ErrInternalServer
	}

	if inserted {
		s.auditLogger.LogPaymentEvent(logger.AuditEvent{
			EventType: models.AuditEventTypePaymentConfirmed,
			Success:   true,
			Metadata: map[string]string{
				"provider":   stored.Provider,
				"payment_id": stored.ID,
				"order_id":   stored.OrderID,
				"amount":     fmt.Sprintf("%d %s", stored.AmountCents, stored.Currency),
			},
		})
		s.publishConfirmed(ctx, stored)
	}
	return stored, inserted, nil
}

// publishConfirmed emits the notifier event. A broker outage loses the
// receipt email, not the payment.
func (s *CheckoutService) publishConfirmed(ctx context.Context, payment *models.Payment) {
	if s.publisher == nil {
		return
	}

	event := events.PaymentEvent{
		Type:          events.RoutingKeyPaymentConfirmed,
		PaymentID:     payment.ID,
		Provider:      payment.Provider,
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		PlanID:        payment.PlanID,
		AmountCents:   payment.AmountCents,
		Currency:      payment.Currency,
		CustomerEmail: payment.CustomerEmail,
		OccurredAt:    payment.CreatedAt,
	}
	if plan, err := s.planRepo.GetByID(ctx, payment.PlanID); err == nil {
		event.PlanName = plan.Name
	}

	if err := s.publisher.Publish(events.RoutingKeyPaymentConfirmed, event); err != nil {
		s.logger.Warn("failed to publish payment event",
			slog.String("payment_id", payment.ID),
			slog.Any("error", err))
	}
}

// ListPayments returns recorded payments for the admin view.
func (s *CheckoutService) ListPayments(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	payments, total, err := s.paymentRepo.List(ctx, provider, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list payments", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return payments, total, nil
}
