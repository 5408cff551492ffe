package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/pkg/logger"
)

// PaymentConfigRepository defines the interface for provider credential storage
type PaymentConfigRepository interface {
	GetByID(ctx context.Context, id string) (*models.PaymentConfig, error)
	GetActive(ctx context.Context, provider, environment string) (*models.PaymentConfig, error)
	List(ctx context.Context) ([]*models.PaymentConfig, error)
	Create(ctx context.Context, cfg *models.PaymentConfig) (*models.PaymentConfig, error)
	Update(ctx context.Context, id string, cfg *models.PaymentConfig) (*models.PaymentConfig, error)
	Activate(ctx context.Context, id string) (*models.PaymentConfig, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PaymentConfigService manages provider credentials. Every read path
// returns sanitized copies; plaintext secrets leave the service only
// toward the gateway adapters.
type PaymentConfigService struct {
	repo        PaymentConfigRepository
	logger      *slog.Logger
	auditLogger *logger.AuditLogger
}

func NewPaymentConfigService(repo PaymentConfigRepository, log *slog.Logger, auditLogger *logger.AuditLogger) *PaymentConfigService {
	return &PaymentConfigService{repo: repo, logger: log, auditLogger: auditLogger}
}

func validProvider(p string) bool {
	return p == models.ProviderStripe || p == models.ProviderPaypal
}

func validEnvironment(e string) bool {
	return e == models.EnvironmentSandbox || e == models.EnvironmentProduction
}

func (s *PaymentConfigService) ListConfigs(ctx context.Context) ([]*models.PaymentConfig, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list payment configs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sanitized := make([]*models.PaymentConfig, len(configs))
	for i, cfg := range configs {
		sanitized[i] = cfg.Sanitized()
	}
	return sanitized, nil
}

func (s *PaymentConfigService) GetConfig(ctx context.Context, id string) (*models.PaymentConfig, error) {
	cfg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get payment config", slog.String("config_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return cfg.Sanitized(), nil
}

func (s *PaymentConfigService) CreateConfig(ctx context.Context, actorID string, cfg *models.PaymentConfig) (*models.PaymentConfig, error) {
	if !validProvider(cfg.Provider) || !validEnvironment(cfg.Environment) {
		return nil, models.ErrBadRequest
	}
	if !cfg.RelevantFieldsOnly() {
		return nil, models.ErrBadRequest
	}

	// New configs start inactive; activation is an explicit step so the
	// one-active invariant has a single write path.
	cfg.IsActive = false

	created, err := s.repo.Create(ctx, cfg)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create payment config", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction(logger.AuditEvent{
		EventType: models.AuditEventTypeConfigChange,
		UserID:    actorID,
		Success:   true,
		Metadata: map[string]string{
			"config_id":   created.ID,
			"provider":    created.Provider,
			"environment": created.Environment,
			"action":      models.AuditActionCreate,
		},
	})
	return created.Sanitized(), nil
}

// UpdateConfig applies partial updates. Secret fields left empty keep
// their stored values.
func (s *PaymentConfigService) UpdateConfig(ctx context.Context, actorID, id string, cfg *models.PaymentConfig) (*models.PaymentConfig, error) {
	updated, err := s.repo.Update(ctx, id, cfg)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update payment config", slog.String("config_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction(logger.AuditEvent{
		EventType: models.AuditEventTypeConfigChange,
		UserID:    actorID,
		Success:   true,
		Metadata: map[string]string{
			"config_id": id,
			"action":    models.AuditActionUpdate,
		},
	})
	return updated.Sanitized(), nil
}

// SetActive flips a config's active flag. Activation deactivates the
// sibling config for the same provider and environment.
func (s *PaymentConfigService) SetActive(ctx context.Context, actorID, id string, active bool) (*models.PaymentConfig, error) {
	var cfg *models.PaymentConfig
	var err error
	if active {
		cfg, err = s.repo.Activate(ctx, id)
	} else {
		if err = s.repo.Deactivate(ctx, id); err == nil {
			cfg, err = s.repo.GetByID(ctx, id)
		}
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to change payment config state", slog.String("config_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction(logger.AuditEvent{
		EventType: models.AuditEventTypeConfigChange,
		UserID:    actorID,
		Success:   true,
		Metadata: map[string]string{
			"config_id": id,
			"action":    models.AuditActionUpdate,
			"is_active": boolString(active),
		},
	})
	return cfg.Sanitized(), nil
}

func (s *PaymentConfigService) DeleteConfig(ctx context.Context, actorID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete payment config", slog.String("config_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction(logger.AuditEvent{
		EventType: models.AuditEventTypeConfigChange,
		UserID:    actorID,
		Success:   true,
		Metadata: map[string]string{
			"config_id": id,
			"action":    models.AuditActionDelete,
		},
	})
	return nil
}

// EnabledProviders reports which providers have an active config in the
// given environment, for the public pricing page's payment buttons.
func (s *PaymentConfigService) EnabledProviders(ctx context.Context, environment string, mockEnabled bool) ([]string, error) {
	providers := make([]string, 0, 3)
	for _, p := range []string{models.ProviderStripe, models.ProviderPaypal} {
		if _, err := s.repo.GetActive(ctx, p, environment); err == nil {
			providers = append(providers, p)
		} else if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to check provider config", slog.String("provider", p), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}
	if mockEnabled {
		providers = append(providers, models.ProviderMock)
	}
	return providers, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
