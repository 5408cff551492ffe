package http

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	trusted := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		config     *IPConfig
		expected   string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:51000",
			config:     trusted,
			expected:   "203.0.113.7",
		},
		{
			name:       "forwarded header from trusted proxy",
			remoteAddr: "10.0.0.5:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			config:     trusted,
			expected:   "203.0.113.7",
		},
		{
			name:       "forwarded chain takes first valid hop",
			remoteAddr: "10.0.0.5:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.5"},
			config:     trusted,
			expected:   "203.0.113.7",
		},
		{
			name:       "forwarded header from untrusted source ignored",
			remoteAddr: "198.51.100.9:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			config:     trusted,
			expected:   "198.51.100.9",
		},
		{
			name:       "spoofed header without any trusted proxies",
			remoteAddr: "198.51.100.9:443",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			config:     &IPConfig{},
			expected:   "198.51.100.9",
		},
		{
			name:       "x-real-ip from trusted proxy",
			remoteAddr: "10.0.0.5:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			config:     trusted,
			expected:   "203.0.113.7",
		},
		{
			name:       "garbage forwarded value falls back",
			remoteAddr: "10.0.0.5:443",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			config:     trusted,
			expected:   "10.0.0.5",
		},
		{
			name:       "nil config never trusts headers",
			remoteAddr: "10.0.0.5:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			config:     nil,
			expected:   "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ExtractClientIP(req, tt.config); got != tt.expected {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}
