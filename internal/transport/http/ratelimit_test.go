package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_PerIPBudget(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("10.0.0.1") {
		t.Error("first request should pass")
	}
	if !rl.Allow("10.0.0.1") {
		t.Error("second request should pass within burst")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request should exceed the burst")
	}

	// Buckets are per IP; another client is unaffected.
	if !rl.Allow("10.0.0.2") {
		t.Error("a different ip should have its own bucket")
	}
}

func TestRateLimitMiddleware_RejectsWith429(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
}
