package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/models"
)

func testPayment() *models.Payment {
	return &models.Payment{
		ID:            "pay-1",
		Provider:      models.ProviderStripe,
		OrderID:       "order-1",
		PlanID:        "plan-1",
		BillingPeriod: models.BillingMonthly,
		AmountCents:   1999,
		Currency:      "USD",
		CustomerEmail: "reader@example.com",
	}
}

func TestSignupTokenSigner_MintAndVerify(t *testing.T) {
	signer := NewSignupTokenSigner("test-signup-secret", 30*time.Minute)

	tokenString, jti, expiresAt, err := signer.Mint(testPayment())
	if err != nil {
		t.Fatalf("Mint() = %v", err)
	}
	if jti == "" {
		t.Error("expected a JTI")
	}
	if time.Until(expiresAt) > 30*time.Minute || time.Until(expiresAt) < 29*time.Minute {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	claims, err := signer.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	if claims.ID != jti {
		t.Errorf("claims JTI %q != minted %q", claims.ID, jti)
	}
	if claims.PaymentID != "pay-1" || claims.OrderID != "order-1" {
		t.Errorf("payment binding lost: %+v", claims)
	}
	if claims.AmountCents != 1999 || claims.Currency != "USD" {
		t.Errorf("amount binding lost: %+v", claims)
	}
}

func TestSignupTokenSigner_RejectsWrongSecret(t *testing.T) {
	signer := NewSignupTokenSigner("test-signup-secret", 30*time.Minute)
	forger := NewSignupTokenSigner("different-secret", 30*time.Minute)

	tokenString, _, _, err := forger.Mint(testPayment())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := signer.Verify(tokenString); !errors.Is(err, models.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestSignupTokenSigner_RejectsExpired(t *testing.T) {
	signer := NewSignupTokenSigner("test-signup-secret", -1*time.Minute)

	tokenString, _, _, err := signer.Mint(testPayment())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := signer.Verify(tokenString); !errors.Is(err, models.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSignupTokenSigner_RejectsGarbage(t *testing.T) {
	signer := NewSignupTokenSigner("test-signup-secret", 30*time.Minute)

	for _, tokenString := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := signer.Verify(tokenString); !errors.Is(err, models.ErrTokenInvalid) {
			t.Errorf("Verify(%q): expected ErrTokenInvalid, got %v", tokenString, err)
		}
	}
}

func TestSignupTokenSigner_RejectsSessionTokens(t *testing.T) {
	// Even with a shared secret the payment binding check rejects
	// session tokens.
	tm := NewTokenManager("test-signup-secret", 15*time.Minute, time.Hour)
	sessionToken, err := tm.GenerateAccessToken("user-1", "reader@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	signer := NewSignupTokenSigner("test-signup-secret", 30*time.Minute)
	if _, err := signer.Verify(sessionToken); err == nil {
		t.Error("session token must not verify as a signup token")
	}
}

func TestSignupTokenSigner_TokensDifferPerMint(t *testing.T) {
	signer := NewSignupTokenSigner("test-signup-secret", 30*time.Minute)
	payment := testPayment()

	first, jti1, _, err := signer.Mint(payment)
	if err != nil {
		t.Fatal(err)
	}
	second, jti2, _, err := signer.Mint(payment)
	if err != nil {
		t.Fatal(err)
	}

	if jti1 == jti2 {
		t.Error("each mint must get a fresh JTI")
	}
	if strings.Compare(first, second) == 0 {
		t.Error("tokens for the same payment must differ")
	}
}
