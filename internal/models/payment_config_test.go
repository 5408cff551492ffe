package models

import "testing"

func TestPaymentConfig_Sanitized(t *testing.T) {
	cfg := &PaymentConfig{
		Provider:       ProviderStripe,
		Environment:    EnvironmentSandbox,
		PublishableKey: "pk_test_123",
		SecretKey:      "sk_test_123",
		ClientSecret:   "client-secret",
		WebhookSecret:  "whsec_123",
	}

	out := cfg.Sanitized()

	if out.SecretKey != "" || out.ClientSecret != "" || out.WebhookSecret != "" {
		t.Errorf("secrets leaked: %+v", out)
	}
	if out.PublishableKey != "pk_test_123" {
		t.Error("publishable key is not secret and must survive")
	}
	if cfg.SecretKey != "sk_test_123" {
		t.Error("Sanitized must not mutate the original")
	}
}

func TestPaymentConfig_RelevantFieldsOnly(t *testing.T) {
	tests := []struct {
		name string
		cfg  PaymentConfig
		want bool
	}{
		{
			name: "stripe with stripe fields",
			cfg:  PaymentConfig{Provider: ProviderStripe, PublishableKey: "pk", SecretKey: "sk", WebhookSecret: "wh"},
			want: true,
		},
		{
			name: "stripe with paypal client id",
			cfg:  PaymentConfig{Provider: ProviderStripe, SecretKey: "sk", ClientID: "cid"},
			want: false,
		},
		{
			name: "paypal with paypal fields",
			cfg:  PaymentConfig{Provider: ProviderPaypal, ClientID: "cid", ClientSecret: "cs", WebhookID: "wid"},
			want: true,
		},
		{
			name: "paypal with stripe secret key",
			cfg:  PaymentConfig{Provider: ProviderPaypal, ClientID: "cid", SecretKey: "sk"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.RelevantFieldsOnly(); got != tt.want {
				t.Errorf("RelevantFieldsOnly() = %v, want %v", got, tt.want)
			}
		})
	}
}
