package handlers

import (
	"context"
	"net/http"

	"github.com/openshelf/openshelf/internal/gateway"
	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/internal/services"
)

// MockCheckoutService is a configurable mock for CheckoutServiceInterface
type MockCheckoutService struct {
	CreateCheckoutFunc  func(ctx context.Context, provider, planID, billingPeriod, customerEmail string) (*gateway.CheckoutSession, error)
	ConfirmRedirectFunc func(ctx context.Context, provider string, params map[string]string) (*models.Payment, error)
	ListPaymentsFunc    func(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error)
}

func (m *MockCheckoutService) CreateCheckout(ctx context.Context, provider, planID, billingPeriod, customerEmail string) (*gateway.CheckoutSession, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, provider, planID, billingPeriod, customerEmail)
	}
	return nil, models.ErrProviderUnavailable
}

func (m *MockCheckoutService) ConfirmRedirect(ctx context.Context, provider string, params map[string]string) (*models.Payment, error) {
	if m.ConfirmRedirectFunc != nil {
		return m.ConfirmRedirectFunc(ctx, provider, params)
	}
	return nil, models.ErrProviderUnavailable
}

func (m *MockCheckoutService) ListPayments(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error) {
	if m.ListPaymentsFunc != nil {
		return m.ListPaymentsFunc(ctx, provider, status, limit, offset)
	}
	return nil, 0, nil
}

// MockSignupService is a configurable mock for the signup interfaces
type MockSignupService struct {
	IssueForPaymentFunc func(ctx context.Context, payment *models.Payment) (string, error)
	ValidateFunc        func(ctx context.Context, tokenString string) (*services.SignupDetails, error)
	CompleteSignupFunc  func(ctx context.Context, req services.SignupRequest) (*models.User, *services.TokenPair, error)
}

func (m *MockSignupService) IssueForPayment(ctx context.Context, payment *models.Payment) (string, error) {
	if m.IssueForPaymentFunc != nil {
		return m.IssueForPaymentFunc(ctx, payment)
	}
	return "signup-token", nil
}

func (m *MockSignupService) Validate(ctx context.Context, tokenString string) (*services.SignupDetails, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, tokenString)
	}
	return nil, models.ErrTokenInvalid
}

func (m *MockSignupService) CompleteSignup(ctx context.Context, req services.SignupRequest) (*models.User, *services.TokenPair, error) {
	if m.CompleteSignupFunc != nil {
		return m.CompleteSignupFunc(ctx, req)
	}
	return nil, nil, models.ErrTokenInvalid
}

// MockWebhookProcessor is a configurable mock for WebhookProcessor
type MockWebhookProcessor struct {
	HandleWebhookFunc func(r *http.Request, provider string, body []byte) error
	Calls             int
}

func (m *MockWebhookProcessor) HandleWebhook(r *http.Request, provider string, body []byte) error {
	m.Calls++
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(r, provider, body)
	}
	return nil
}

// MockPlanService is a configurable mock for PlanServiceInterface
type MockPlanService struct {
	GetPlanByIDFunc     func(ctx context.Context, id string) (*models.PricingPlan, error)
	ListPublicPlansFunc func(ctx context.Context) ([]*models.PricingPlan, error)
	ListAdminPlansFunc  func(ctx context.Context, search string, page, limit int) ([]*models.PricingPlan, int, error)
	CreatePlanFunc      func(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error)
	UpdatePlanFunc      func(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error)
	DeletePlanFunc      func(ctx context.Context, id string, hard bool) error
}

func (m *MockPlanService) GetPlanByID(ctx context.Context, id string) (*models.PricingPlan, error) {
	if m.GetPlanByIDFunc != nil {
		return m.GetPlanByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPlanService) ListPublicPlans(ctx context.Context) ([]*models.PricingPlan, error) {
	if m.ListPublicPlansFunc != nil {
		return m.ListPublicPlansFunc(ctx)
	}
	return nil, nil
}

func (m *MockPlanService) ListAdminPlans(ctx context.Context, search string, page, limit int) ([]*models.PricingPlan, int, error) {
	if m.ListAdminPlansFunc != nil {
		return m.ListAdminPlansFunc(ctx, search, page, limit)
	}
	return nil, 0, nil
}

func (m *MockPlanService) CreatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if m.CreatePlanFunc != nil {
		return m.CreatePlanFunc(ctx, plan)
	}
	return plan, nil
}

func (m *MockPlanService) UpdatePlan(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if m.UpdatePlanFunc != nil {
		return m.UpdatePlanFunc(ctx, id, plan)
	}
	return plan, nil
}

func (m *MockPlanService) DeletePlan(ctx context.Context, id string, hard bool) error {
	if m.DeletePlanFunc != nil {
		return m.DeletePlanFunc(ctx, id, hard)
	}
	return nil
}

// MockProviderLister is a configurable mock for ProviderLister
type MockProviderLister struct {
	EnabledProvidersFunc func(ctx context.Context, environment string, mockEnabled bool) ([]string, error)
}

func (m *MockProviderLister) EnabledProviders(ctx context.Context, environment string, mockEnabled bool) ([]string, error) {
	if m.EnabledProvidersFunc != nil {
		return m.EnabledProvidersFunc(ctx, environment, mockEnabled)
	}
	return nil, nil
}

// MockUserService is a configurable mock for UserServiceInterface
type MockUserService struct {
	GetUserByIDFunc func(ctx context.Context, id string) (*models.User, error)
	ListUsersFunc   func(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error)
	UpdateUserFunc  func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteUserFunc  func(ctx context.Context, id string) error
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, search, limit, offset)
	}
	return nil, 0, nil
}

func (m *MockUserService) UpdateUser(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, id, user)
	}
	return user, nil
}

func (m *MockUserService) DeleteUser(ctx context.Context, id string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, id)
	}
	return nil
}

// MockInviteService is a configurable mock for InviteServiceInterface
type MockInviteService struct {
	InviteUserFunc   func(ctx context.Context, actorID, email, name, phone, planID string) (*models.User, error)
	ResendInviteFunc func(ctx context.Context, userID string) error
	AcceptInviteFunc func(ctx context.Context, plainToken, password string) (*models.User, error)
}

func (m *MockInviteService) InviteUser(ctx context.Context, actorID, email, name, phone, planID string) (*models.User, error) {
	if m.InviteUserFunc != nil {
		return m.InviteUserFunc(ctx, actorID, email, name, phone, planID)
	}
	return nil, models.ErrInternalServer
}

func (m *MockInviteService) ResendInvite(ctx context.Context, userID string) error {
	if m.ResendInviteFunc != nil {
		return m.ResendInviteFunc(ctx, userID)
	}
	return nil
}

func (m *MockInviteService) AcceptInvite(ctx context.Context, plainToken, password string) (*models.User, error) {
	if m.AcceptInviteFunc != nil {
		return m.AcceptInviteFunc(ctx, plainToken, password)
	}
	return nil, models.ErrTokenInvalid
}

// MockAuthService is a configurable mock for AuthServiceInterface
type MockAuthService struct {
	LoginFunc                func(ctx context.Context, email, password, ipAddress string) (*models.User, *services.TokenPair, error)
	RefreshFunc              func(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	LogoutFunc               func(ctx context.Context, userID string, tokens ...string) error
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	ResetPasswordFunc        func(ctx context.Context, plainToken, password string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*models.User, *services.TokenPair, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress)
	}
	return nil, nil, models.ErrUnauthorized
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, userID string, tokens ...string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID, tokens...)
	}
	return nil
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, plainToken, password string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, plainToken, password)
	}
	return models.ErrTokenInvalid
}
