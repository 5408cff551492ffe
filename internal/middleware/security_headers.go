package middleware

import "net/http"

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders adds standard security headers to all responses. The
// CSP allows the hosted checkout pages of the payment providers as
// form/redirect targets; everything else is same-origin.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			var csp string
			if config.Env == "production" {
				csp = "default-src 'self'; " +
					"script-src 'self' https://js.stripe.com https://www.paypal.com; " +
					"style-src 'self' 'unsafe-inline'; " +
					"img-src 'self' data: https:; " +
					"connect-src 'self' https://api.stripe.com; " +
					"frame-src https://js.stripe.com https://www.paypal.com; " +
					"frame-ancestors 'none'; " +
					"base-uri 'self'; " +
					"form-action 'self' https://checkout.stripe.com https://www.paypal.com https://www.sandbox.paypal.com"
			} else {
				csp = "default-src 'self' http: https: ws:; " +
					"script-src 'self' 'unsafe-inline' 'unsafe-eval' http: https:; " +
					"style-src 'self' 'unsafe-inline' http: https:; " +
					"img-src 'self' data: https: http:; " +
					"connect-src 'self' http: https: ws:; " +
					"frame-ancestors 'self'; " +
					"base-uri 'self'; " +
					"form-action 'self' http: https:"
			}
			w.Header().Set("Content-Security-Policy", csp)

			if config.Env == "production" && (r.Header.Get("X-Forwarded-Proto") == "https" || r.URL.Scheme == "https") {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			w.Header().Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), microphone=(), usb=()")

			next.ServeHTTP(w, r)
		})
	}
}
