package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/models"
	pkglogger "github.com/openshelf/openshelf/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSignupSecret = "signup-token-secret-for-tests-0123456789"

func testSignupPayment() *models.Payment {
	return &models.Payment{
		ID:            "pay1",
		Provider:      models.ProviderMock,
		OrderID:       "abc123",
		PlanID:        "plan1",
		BillingPeriod: models.BillingMonthly,
		AmountCents:   1999,
		Currency:      "USD",
		CustomerEmail: "reader@example.com",
		Status:        models.PaymentStatusConfirmed,
	}
}

// signupFixture wires a SignupService over an in-memory token store so
// issue/validate/consume flows run against real state transitions.
type signupFixture struct {
	service *SignupService
	tokens  map[string]*models.SignupToken
	mu      sync.Mutex
	users   *MockUserRepository
}

func newSignupFixture(t *testing.T, payment *models.Payment) *signupFixture {
	t.Helper()

	f := &signupFixture{tokens: make(map[string]*models.SignupToken)}

	tokenRepo := &MockSignupTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.SignupToken) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			copied := *token
			f.tokens[token.JTI] = &copied
			return nil
		},
		GetByJTIFunc: func(ctx context.Context, jti string) (*models.SignupToken, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			token, ok := f.tokens[jti]
			if !ok {
				return nil, models.ErrNotFound
			}
			copied := *token
			return &copied, nil
		},
		// Mirrors the conditional UPDATE: one winner per payment.
		ConsumeFunc: func(ctx context.Context, jti string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			token, ok := f.tokens[jti]
			if !ok {
				return models.ErrTokenUsed
			}
			for _, other := range f.tokens {
				if other.PaymentID == token.PaymentID && other.UsedAt != nil {
					return models.ErrTokenUsed
				}
			}
			now := time.Now()
			token.UsedAt = &now
			return nil
		},
	}

	paymentRepo := &MockPaymentRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Payment, error) {
			if payment != nil && id == payment.ID {
				copied := *payment
				return &copied, nil
			}
			return nil, models.ErrNotFound
		},
	}

	var createdMu sync.Mutex
	created := map[string]*models.User{}
	f.users = &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			createdMu.Lock()
			defer createdMu.Unlock()
			if u, ok := created[email]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			createdMu.Lock()
			defer createdMu.Unlock()
			if _, ok := created[user.Email]; ok {
				return nil, models.ErrConflict
			}
			user.ID = "user-" + user.Email
			created[user.Email] = user
			return user, nil
		},
	}

	planRepo := &MockPricingPlanRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.PricingPlan, error) {
			return NewTestPlan("plan1", 1999), nil
		},
	}

	log := slog.Default()
	f.service = NewSignupService(
		auth.NewSignupTokenSigner(testSignupSecret, 30*time.Minute),
		tokenRepo,
		paymentRepo,
		f.users,
		planRepo,
		auth.NewTokenManager("session-secret-for-tests-0123456789", 15*time.Minute, 24*time.Hour),
		&MockEventPublisher{},
		log,
		pkglogger.NewAuditLogger(log),
	)
	return f
}

func TestSignupService_IssueAndValidate(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	tokenString, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	details, err := f.service.Validate(context.Background(), tokenString)
	require.NoError(t, err)
	// The token carries the same order id and amount reported by the
	// success callback, for the later cross-check.
	assert.Equal(t, "abc123", details.OrderID)
	assert.Equal(t, 1999, details.AmountCents)
	assert.Equal(t, "USD", details.Currency)
	assert.Equal(t, "reader@example.com", details.CustomerEmail)
	assert.Equal(t, "Premium", details.PlanName)
}

func TestSignupService_Validate_GarbageToken(t *testing.T) {
	f := newSignupFixture(t, testSignupPayment())

	_, err := f.service.Validate(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestSignupService_Validate_WrongSecret(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	forged, _, _, err := auth.NewSignupTokenSigner("attacker-controlled-secret-0123456", 30*time.Minute).Mint(payment)
	require.NoError(t, err)

	_, err = f.service.Validate(context.Background(), forged)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestSignupService_Validate_ClaimsMismatchedWithPayment(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	// Mint against a doctored copy so claims disagree with the stored row.
	doctored := *payment
	doctored.AmountCents = 1
	tokenString, jti, expiresAt, err := auth.NewSignupTokenSigner(testSignupSecret, 30*time.Minute).Mint(&doctored)
	require.NoError(t, err)
	f.tokens[jti] = &models.SignupToken{JTI: jti, PaymentID: payment.ID, ExpiresAt: expiresAt}

	_, err = f.service.Validate(context.Background(), tokenString)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestSignupService_CompleteSignup_Success(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	tokenString, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)

	user, pair, err := f.service.CompleteSignup(context.Background(), SignupRequest{
		Token:    tokenString,
		Name:     "Reader One",
		Email:    "reader@example.com",
		Password: "SecurePassword123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, user.Status)
	require.NotNil(t, user.PlanID)
	assert.Equal(t, "plan1", *user.PlanID)
	require.NotNil(t, user.ExpiresAt, "monthly plan sets an access expiry")
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestSignupService_ValidateAfterConsumption(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	tokenString, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)

	_, _, err = f.service.CompleteSignup(context.Background(), SignupRequest{
		Token:    tokenString,
		Name:     "Reader One",
		Email:    "reader@example.com",
		Password: "SecurePassword123",
	})
	require.NoError(t, err)

	// The same token validates as invalid once consumed.
	_, err = f.service.Validate(context.Background(), tokenString)
	assert.ErrorIs(t, err, models.ErrTokenUsed)
}

func TestSignupService_ConcurrentConsumption_OneWinner(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	tokenString, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := f.service.CompleteSignup(context.Background(), SignupRequest{
				Token:    tokenString,
				Name:     "Reader",
				Email:    "reader@example.com",
				Password: "SecurePassword123",
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, used := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrTokenUsed):
			used++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one attempt creates an account")
	assert.Equal(t, attempts-1, used)
}

func TestSignupService_TwoTokensSamePayment_OneAccount(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	first, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)
	second, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)

	_, _, err = f.service.CompleteSignup(context.Background(), SignupRequest{
		Token:    first,
		Name:     "Reader",
		Email:    "reader@example.com",
		Password: "SecurePassword123",
	})
	require.NoError(t, err)

	_, _, err = f.service.CompleteSignup(context.Background(), SignupRequest{
		Token:    second,
		Name:     "Reader",
		Email:    "other@example.com",
		Password: "SecurePassword123",
	})
	assert.ErrorIs(t, err, models.ErrTokenUsed, "a re-minted token for a spent payment cannot create a second account")
}

func TestSignupService_CompleteSignup_ExpiredToken(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	signer := auth.NewSignupTokenSigner(testSignupSecret, -time.Minute)
	tokenString, _, _, err := signer.Mint(payment)
	require.NoError(t, err)

	_, _, err = f.service.CompleteSignup(context.Background(), SignupRequest{
		Token:    tokenString,
		Password: "SecurePassword123",
	})
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestSignupService_CompleteSignup_WeakPasswordDoesNotBurnToken(t *testing.T) {
	payment := testSignupPayment()
	f := newSignupFixture(t, payment)

	tokenString, err := f.service.IssueForPayment(context.Background(), payment)
	require.NoError(t, err)

	_, _, err = f.service.CompleteSignup(context.Background(), SignupRequest{
		Token:    tokenString,
		Email:    "reader@example.com",
		Password: "short",
	})
	require.Error(t, err)

	// Validation failures happen before consumption; the token survives.
	_, err = f.service.Validate(context.Background(), tokenString)
	assert.NoError(t, err)
}
