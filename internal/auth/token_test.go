package auth

import (
	"testing"
	"time"
)

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	tm := NewTokenManager("test-session-secret", 15*time.Minute, 7*24*time.Hour)

	tokenString, err := tm.GenerateAccessToken("user-1", "reader@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateAccessToken() = %v", err)
	}

	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() = %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "reader@example.com" || claims.Role != "user" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Type != "access" {
		t.Errorf("expected access token, got %q", claims.Type)
	}
	if claims.ID == "" {
		t.Error("expected a JTI for revocation tracking")
	}
}

func TestTokenManager_RefreshTokenType(t *testing.T) {
	tm := NewTokenManager("test-session-secret", 15*time.Minute, 7*24*time.Hour)

	tokenString, err := tm.GenerateRefreshToken("user-1", "reader@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Type != "refresh" {
		t.Errorf("expected refresh token, got %q", claims.Type)
	}
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-session-secret", 15*time.Minute, time.Hour)
	other := NewTokenManager("other-secret", 15*time.Minute, time.Hour)

	tokenString, err := other.GenerateAccessToken("user-1", "reader@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tm.ValidateToken(tokenString); err == nil {
		t.Error("expected validation failure for foreign secret")
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-session-secret", -1*time.Minute, time.Hour)

	tokenString, err := tm.GenerateAccessToken("user-1", "reader@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tm.ValidateToken(tokenString); err == nil {
		t.Error("expected validation failure for expired token")
	}
}
