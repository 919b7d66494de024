package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"donation-checkout-api/models"
	"donation-checkout-api/services/auth"
)

type stubValidator struct {
	operator *models.Operator
	err      error
}

func (s stubValidator) ValidateToken(tokenString string) (*models.Operator, error) {
	return s.operator, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	admin := &models.Operator{Username: "ops", Role: auth.RoleAdmin}

	tests := []struct {
		name      string
		header    string
		validator stubValidator
		want      int
	}{
		{name: "missing header", header: "", validator: stubValidator{operator: admin}, want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", validator: stubValidator{operator: admin}, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer abc", validator: stubValidator{err: auth.ErrTokenExpired}, want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer abc", validator: stubValidator{operator: admin}, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *models.Operator
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetOperatorFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/admin/gateway-errors", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tt.validator)(next).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d; want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && (seen == nil || seen.Username != "ops") {
				t.Errorf("operator not in context: %+v", seen)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := AuthMiddleware(stubValidator{operator: &models.Operator{Username: "v", Role: auth.RoleViewer}})(
		RequireRole(auth.RoleAdmin)(okHandler()),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/jobs/1/retry", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d; want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	RequireRole(auth.RoleAdmin)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without operator = %d; want 401", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("generated request id %q is not a uuid", seen)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("response header does not carry the request id")
	}

	incoming := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Errorf("incoming request id not reused: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Error("a malformed request id must be replaced")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeadersMiddleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "no-store") {
		t.Error("api responses must not be cached")
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := CORSMiddleware("https://give.example.org")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, CheckoutPath, nil)
	req.Header.Set("Origin", "https://give.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("preflight should not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://give.example.org" {
		t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRateLimiterConfigAndKey(t *testing.T) {
	rl := NewRateLimiter(nil)

	if cfg := rl.getConfigForEndpoint(CheckoutPath); cfg.Requests != 5 {
		t.Errorf("checkout limit = %d", cfg.Requests)
	}
	if cfg := rl.getConfigForEndpoint("/api/internal/anything"); cfg.Requests != 100 {
		t.Errorf("internal limit = %d", cfg.Requests)
	}
	if cfg := rl.getConfigForEndpoint("/api/health"); cfg.Requests != 60 {
		t.Errorf("default limit = %d", cfg.Requests)
	}

	rl.SetLimit(CheckoutPath, RateLimitConfig{Requests: 2, Window: 60})
	if cfg := rl.getConfigForEndpoint(CheckoutPath); cfg.Requests != 2 {
		t.Errorf("override not applied: %d", cfg.Requests)
	}
	if defaultConfigs[CheckoutPath].Requests != 5 {
		t.Error("SetLimit must not change the shared defaults")
	}

	req := httptest.NewRequest(http.MethodPost, CheckoutPath, nil)
	req.RemoteAddr = "203.0.113.7:52100"
	if key := rl.getRateLimitKey(req); key != "rate_limit:203.0.113.7:"+CheckoutPath {
		t.Errorf("key = %q", key)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	if key := rl.getRateLimitKey(req); key != "rate_limit:198.51.100.1:"+CheckoutPath {
		t.Errorf("key = %q", key)
	}

	internal := httptest.NewRequest(http.MethodPost, "/api/internal/operator-token", nil)
	internal.Header.Set("X-Internal-Secret", "super-secret-value")
	if key := rl.getRateLimitKey(internal); strings.Contains(key, "super-secret-value") {
		t.Errorf("secret leaked into key %q", key)
	}
}
