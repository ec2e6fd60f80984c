package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mozilla/classify-client/internal/limiter"
	"github.com/mozilla/classify-client/internal/trust"
)

func newTrustSet(t *testing.T, cidrs ...string) *trust.TrustSet {
	t.Helper()
	ts, err := trust.NewTrustSet(cidrs)
	if err != nil {
		t.Fatalf("failed to build trust set: %v", err)
	}
	return ts
}

// TestRateLimitMiddleware_Allowed tests request allowed
func TestRateLimitMiddleware_Allowed(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)

	mw := RateLimitMiddleware(mockLimiter, newTrustSet(t), nil)

	nextCalled := false
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	handler := mw(nextHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:12345"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !nextCalled {
		t.Error("expected next handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "success" {
		t.Errorf("expected body 'success', got '%s'", rec.Body.String())
	}
}

// TestRateLimitMiddleware_RateLimited tests request blocked
func TestRateLimitMiddleware_RateLimited(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(false)

	mw := RateLimitMiddleware(mockLimiter, newTrustSet(t), nil)

	nextCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:12345"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if nextCalled {
		t.Error("expected next handler NOT to be called")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var errResp map[string]string
	json.NewDecoder(rec.Body).Decode(&errResp)

	if errResp["error"] != "Rate limit exceeded. Please try again later." {
		t.Errorf("unexpected error message: %s", errResp["error"])
	}
}

// TestRateLimitMiddleware_LimiterKey tests which client the limiter is keyed by
func TestRateLimitMiddleware_LimiterKey(t *testing.T) {
	tests := []struct {
		name          string
		trusted       []string
		remoteAddr    string
		forwardedFor  string
		expectedKey   string
	}{
		{
			name:        "direct client keyed by peer address",
			remoteAddr:  "203.0.113.5:12345",
			expectedKey: "203.0.113.5",
		},
		{
			name:         "forwarded header ignored from untrusted peer",
			remoteAddr:   "203.0.113.5:12345",
			forwardedFor: "89.160.20.1",
			expectedKey:  "203.0.113.5",
		},
		{
			name:         "client behind trusted proxy keyed individually",
			trusted:      []string{"192.0.2.0/24"},
			remoteAddr:   "192.0.2.10:443",
			forwardedFor: "89.160.20.1",
			expectedKey:  "89.160.20.1",
		},
		{
			name:         "only trusted hops skipped in the chain",
			trusted:      []string{"192.0.2.0/24"},
			remoteAddr:   "192.0.2.10:443",
			forwardedFor: "89.160.20.1, 192.0.2.99",
			expectedKey:  "89.160.20.1",
		},
		{
			name:        "ipv6 peer",
			remoteAddr:  "[2001:db8::1]:8080",
			expectedKey: "2001:db8::1",
		},
		{
			name:        "unparseable peer falls back to raw remote addr",
			remoteAddr:  "garbage",
			expectedKey: "garbage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLimiter := limiter.NewMockLimiter(true)
			mw := RateLimitMiddleware(mockLimiter, newTrustSet(t, tt.trusted...), nil)

			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if len(mockLimiter.AllowCalls) != 1 {
				t.Fatalf("expected 1 limiter call, got %d", len(mockLimiter.AllowCalls))
			}
			if mockLimiter.AllowCalls[0] != tt.expectedKey {
				t.Errorf("expected limiter key %s, got %s", tt.expectedKey, mockLimiter.AllowCalls[0])
			}
		})
	}
}

// TestRateLimitMiddleware_MultipleRequests tests sequential requests
func TestRateLimitMiddleware_MultipleRequests(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)
	mw := RateLimitMiddleware(mockLimiter, newTrustSet(t), nil)

	callCount := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.5:12345"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
	}

	if callCount != 3 {
		t.Errorf("expected next handler called 3 times, got %d", callCount)
	}
	if len(mockLimiter.AllowCalls) != 3 {
		t.Errorf("expected limiter called 3 times, got %d", len(mockLimiter.AllowCalls))
	}
}

// TestRateLimitMiddleware_PreservesNextHandlerResponse tests that allowed
// requests pass the inner response through untouched
func TestRateLimitMiddleware_PreservesNextHandlerResponse(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)
	mw := RateLimitMiddleware(mockLimiter, newTrustSet(t), nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom-Header", "test-value")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("custom response"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Custom-Header") != "test-value" {
		t.Error("expected custom header to be preserved")
	}
	if rec.Body.String() != "custom response" {
		t.Error("expected custom response body to be preserved")
	}
}
