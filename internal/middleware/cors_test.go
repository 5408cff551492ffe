package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(t *testing.T, cfg *CORSConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/api/v1/plans", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()

	CORS(cfg)(testHandler).ServeHTTP(w, req)
	return w
}

func TestCORS_AllowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"https://app.openshelf.io"})

	w := corsRequest(t, cfg, "GET", "https://app.openshelf.io")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.openshelf.io" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary: got %q, want Origin", got)
	}
}

func TestCORS_UnknownOriginGetsNoHeaders(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"https://app.openshelf.io"})

	w := corsRequest(t, cfg, "GET", "https://evil.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q for unknown origin", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"https://app.openshelf.io"})

	w := corsRequest(t, cfg, "OPTIONS", "https://app.openshelf.io")

	if w.Code != http.StatusOK {
		t.Errorf("preflight status: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Access-Control-Allow-Methods missing on preflight")
	}
}
