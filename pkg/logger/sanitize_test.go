package logger

import "testing"

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"reader@example.com", "r*****@*******.com"},
		{"a@b.io", "a@*.io"},
		{"not-an-email", "[invalid-email]"},
		{"", "[invalid-email]"},
	}

	for _, tt := range tests {
		if got := SanitizedEmail(tt.input); got != tt.expected {
			t.Errorf("SanitizedEmail(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		query  string
		redact bool
	}{
		{"token=abc123", true},
		{"signup_token=xyz", true},
		{"password=hunter2", true},
		{"provider=stripe&session_id=cs_123", false},
		{"page=2&limit=20", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := SanitizeQueryString(tt.query); got != tt.redact {
			t.Errorf("SanitizeQueryString(%q) = %v, want %v", tt.query, got, tt.redact)
		}
	}
}

func TestRedactedAttr(t *testing.T) {
	if attr := RedactedAttr("email", "reader@example.com", "production"); attr.Value.String() != "[REDACTED]" {
		t.Errorf("production value not redacted: %v", attr.Value)
	}
	if attr := RedactedAttr("email", "reader@example.com", "development"); attr.Value.String() != "reader@example.com" {
		t.Errorf("development value should pass through: %v", attr.Value)
	}
}
