package models

import (
	"errors"
	"testing"
	"time"
)

func TestUser_CanAuthenticate(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{
			name:    "active without expiry",
			user:    User{Status: StatusActive},
			wantErr: nil,
		},
		{
			name:    "active with future expiry",
			user:    User{Status: StatusActive, ExpiresAt: &future},
			wantErr: nil,
		},
		{
			name:    "active but expired",
			user:    User{Status: StatusActive, ExpiresAt: &past},
			wantErr: ErrAccountExpired,
		},
		{
			name:    "pending",
			user:    User{Status: StatusPending},
			wantErr: ErrAccountPending,
		},
		{
			name:    "inactive",
			user:    User{Status: StatusInactive},
			wantErr: ErrAccountInactive,
		},
		{
			name:    "unknown status treated as inactive",
			user:    User{Status: "banned"},
			wantErr: ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.CanAuthenticate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanAuthenticate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUser_IsExpired(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	if (&User{}).IsExpired() {
		t.Error("nil expiry must mean no expiry")
	}
	if !(&User{ExpiresAt: &past}).IsExpired() {
		t.Error("past expiry must report expired")
	}
}
