package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/openshelf/openshelf/internal/models"
)

// SignupTokenSigner mints and verifies signup tokens: HMAC-signed bearer
// credentials proving a payment occurred, exchanged exactly once for
// account creation. It deliberately uses its own secret so a leaked
// session-signing key cannot forge paid signups (and vice versa).
type SignupTokenSigner struct {
	secret string
	expiry time.Duration
}

// NewSignupTokenSigner creates a signer with the given secret and token
// lifetime (30 minutes by default at the config layer).
func NewSignupTokenSigner(secret string, expiry time.Duration) *SignupTokenSigner {
	return &SignupTokenSigner{secret: secret, expiry: expiry}
}

// Mint issues a signed token for a confirmed payment. The returned JTI is
// persisted so consumption can be enforced server-side.
func (s *SignupTokenSigner) Mint(payment *models.Payment) (tokenString, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	expiresAt = time.Now().Add(s.expiry)

	claims := &models.SignupClaims{
		CustomerEmail: payment.CustomerEmail,
		AmountCents:   payment.AmountCents,
		Currency:      payment.Currency,
		PlanID:        payment.PlanID,
		BillingPeriod: payment.BillingPeriod,
		Provider:      payment.Provider,
		OrderID:       payment.OrderID,
		PaymentID:     payment.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(s.secret))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign signup token: %w", err)
	}
	return tokenString, jti, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims. Claims are
// the only trusted source for the payment binding; client-side decodes are
// display-only.
func (s *SignupTokenSigner) Verify(tokenString string) (*models.SignupClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SignupClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.SignupClaims)
	if !ok || !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	if claims.ID == "" || claims.PaymentID == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
