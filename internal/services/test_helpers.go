package services

import (
	"context"
	"time"

	"github.com/openshelf/openshelf/internal/events"
	"github.com/openshelf/openshelf/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	ListFunc           func(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc         func(ctx context.Context, id string, user *models.User) (*models.User, error)
	SetPasswordFunc    func(ctx context.Context, id, passwordHash string, activate bool) error
	TouchLastLoginFunc func(ctx context.Context, id string) error
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, search, limit, offset)
	}
	return []*models.User{}, 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetPassword(ctx context.Context, id, passwordHash string, activate bool) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, id, passwordHash, activate)
	}
	return nil
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeFunc    func(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockTokenRevocationRepository) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, jti, userID, expiresAt)
	}
	return nil
}

func (m *MockTokenRevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsRevokedFunc != nil {
		return m.IsRevokedFunc(ctx, jti)
	}
	return false, nil
}

// MockInviteTokenRepository implements InviteTokenRepository for testing
type MockInviteTokenRepository struct {
	CreateFunc            func(ctx context.Context, token *models.InviteToken) error
	GetByTokenHashFunc    func(ctx context.Context, tokenHash string) (*models.InviteToken, error)
	MarkAsUsedFunc        func(ctx context.Context, id string) error
	InvalidateForUserFunc func(ctx context.Context, userID string) error
}

func (m *MockInviteTokenRepository) Create(ctx context.Context, token *models.InviteToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

func (m *MockInviteTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.InviteToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockInviteTokenRepository) MarkAsUsed(ctx context.Context, id string) error {
	if m.MarkAsUsedFunc != nil {
		return m.MarkAsUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockInviteTokenRepository) InvalidateForUser(ctx context.Context, userID string) error {
	if m.InvalidateForUserFunc != nil {
		return m.InvalidateForUserFunc(ctx, userID)
	}
	return nil
}

// MockPasswordResetRepository implements PasswordResetRepository for testing
type MockPasswordResetRepository struct {
	CreateFunc            func(ctx context.Context, token *models.PasswordResetToken) error
	GetByTokenHashFunc    func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	MarkAsUsedFunc        func(ctx context.Context, id string) error
	InvalidateForUserFunc func(ctx context.Context, userID string) error
}

func (m *MockPasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

func (m *MockPasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordResetRepository) MarkAsUsed(ctx context.Context, id string) error {
	if m.MarkAsUsedFunc != nil {
		return m.MarkAsUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockPasswordResetRepository) InvalidateForUser(ctx context.Context, userID string) error {
	if m.InvalidateForUserFunc != nil {
		return m.InvalidateForUserFunc(ctx, userID)
	}
	return nil
}

// MockPricingPlanRepository implements PricingPlanRepository for testing
type MockPricingPlanRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.PricingPlan, error)
	ListActiveFunc func(ctx context.Context) ([]*models.PricingPlan, error)
	ListAllFunc    func(ctx context.Context) ([]*models.PricingPlan, error)
	CreateFunc     func(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error)
	UpdateFunc     func(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error)
	DeactivateFunc func(ctx context.Context, id string) error
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockPricingPlanRepository) GetByID(ctx context.Context, id string) (*models.PricingPlan, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPricingPlanRepository) ListActive(ctx context.Context) ([]*models.PricingPlan, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return []*models.PricingPlan{}, nil
}

func (m *MockPricingPlanRepository) ListAll(ctx context.Context) ([]*models.PricingPlan, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.PricingPlan{}, nil
}

func (m *MockPricingPlanRepository) Create(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, plan)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPricingPlanRepository) Update(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, plan)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPricingPlanRepository) Deactivate(ctx context.Context, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

func (m *MockPricingPlanRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPaymentConfigRepository implements PaymentConfigRepository for testing
type MockPaymentConfigRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.PaymentConfig, error)
	GetActiveFunc  func(ctx context.Context, provider, environment string) (*models.PaymentConfig, error)
	ListFunc       func(ctx context.Context) ([]*models.PaymentConfig, error)
	CreateFunc     func(ctx context.Context, cfg *models.PaymentConfig) (*models.PaymentConfig, error)
	UpdateFunc     func(ctx context.Context, id string, cfg *models.PaymentConfig) (*models.PaymentConfig, error)
	ActivateFunc   func(ctx context.Context, id string) (*models.PaymentConfig, error)
	DeactivateFunc func(ctx context.Context, id string) error
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockPaymentConfigRepository) GetByID(ctx context.Context, id string) (*models.PaymentConfig, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPaymentConfigRepository) GetActive(ctx context.Context, provider, environment string) (*models.PaymentConfig, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, provider, environment)
	}
	return nil, models.ErrNotFound
}

func (m *MockPaymentConfigRepository) List(ctx context.Context) ([]*models.PaymentConfig, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.PaymentConfig{}, nil
}

func (m *MockPaymentConfigRepository) Create(ctx context.Context, cfg *models.PaymentConfig) (*models.PaymentConfig, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, cfg)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPaymentConfigRepository) Update(ctx context.Context, id string, cfg *models.PaymentConfig) (*models.PaymentConfig, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, cfg)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPaymentConfigRepository) Activate(ctx context.Context, id string) (*models.PaymentConfig, error) {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, id)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPaymentConfigRepository) Deactivate(ctx context.Context, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

func (m *MockPaymentConfigRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPaymentRepository implements PaymentRepository for testing
type MockPaymentRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.Payment, error)
	GetByProviderEventFunc func(ctx context.Context, provider, providerEventID string) (*models.Payment, error)
	RecordConfirmedFunc    func(ctx context.Context, p *models.Payment) (*models.Payment, bool, error)
	ListFunc               func(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPaymentRepository) GetByProviderEvent(ctx context.Context, provider, providerEventID string) (*models.Payment, error) {
	if m.GetByProviderEventFunc != nil {
		return m.GetByProviderEventFunc(ctx, provider, providerEventID)
	}
	return nil, models.ErrNotFound
}

func (m *MockPaymentRepository) RecordConfirmed(ctx context.Context, p *models.Payment) (*models.Payment, bool, error) {
	if m.RecordConfirmedFunc != nil {
		return m.RecordConfirmedFunc(ctx, p)
	}
	return nil, false, models.ErrInternalServer
}

func (m *MockPaymentRepository) List(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, provider, status, limit, offset)
	}
	return []*models.Payment{}, 0, nil
}

// MockSignupTokenRepository implements SignupTokenRepository for testing
type MockSignupTokenRepository struct {
	CreateFunc   func(ctx context.Context, token *models.SignupToken) error
	GetByJTIFunc func(ctx context.Context, jti string) (*models.SignupToken, error)
	ConsumeFunc  func(ctx context.Context, jti string) error
}

func (m *MockSignupTokenRepository) Create(ctx context.Context, token *models.SignupToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

func (m *MockSignupTokenRepository) GetByJTI(ctx context.Context, jti string) (*models.SignupToken, error) {
	if m.GetByJTIFunc != nil {
		return m.GetByJTIFunc(ctx, jti)
	}
	return nil, models.ErrNotFound
}

func (m *MockSignupTokenRepository) Consume(ctx context.Context, jti string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, jti)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendInviteEmailFunc        func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPaymentReceiptFunc     func(ctx context.Context, email, planName, formattedPrice, transactionID string) error
}

func (m *MockEmailService) SendInviteEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendInviteEmailFunc != nil {
		return m.SendInviteEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPaymentReceipt(ctx context.Context, email, planName, formattedPrice, transactionID string) error {
	if m.SendPaymentReceiptFunc != nil {
		return m.SendPaymentReceiptFunc(ctx, email, planName, formattedPrice, transactionID)
	}
	return nil
}

// MockEventPublisher implements EventPublisher for testing
type MockEventPublisher struct {
	Published []events.PaymentEvent
}

func (m *MockEventPublisher) Publish(routingKey string, event events.PaymentEvent) error {
	m.Published = append(m.Published, event)
	return nil
}

// NewTestUser builds an active user for tests
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: "$2a$12$notarealhash",
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestPlan builds an active monthly plan for tests
func NewTestPlan(id string, priceCents int) *models.PricingPlan {
	now := time.Now()
	return &models.PricingPlan{
		ID:            id,
		Name:          "Premium",
		PriceCents:    priceCents,
		Currency:      "USD",
		BillingPeriod: models.BillingMonthly,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MockBookRepository is a configurable mock for BookRepository
type MockBookRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.Book, error)
	ListFunc           func(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error)
	CreateFunc         func(ctx context.Context, book *models.Book) (*models.Book, error)
	UpdateFunc         func(ctx context.Context, id string, book *models.Book) (*models.Book, error)
	DeleteFunc         func(ctx context.Context, id string) error
	ListCategoriesFunc func(ctx context.Context) ([]*models.Category, error)
	CreateCategoryFunc func(ctx context.Context, category *models.Category) (*models.Category, error)
	DeleteCategoryFunc func(ctx context.Context, id string) error
}

func (m *MockBookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockBookRepository) List(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, search, category, activeOnly, limit, offset)
	}
	return nil, 0, nil
}

func (m *MockBookRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, book)
	}
	return book, nil
}

func (m *MockBookRepository) Update(ctx context.Context, id string, book *models.Book) (*models.Book, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, book)
	}
	return book, nil
}

func (m *MockBookRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockBookRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *MockBookRepository) CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, category)
	}
	return category, nil
}

func (m *MockBookRepository) DeleteCategory(ctx context.Context, id string) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, id)
	}
	return nil
}
