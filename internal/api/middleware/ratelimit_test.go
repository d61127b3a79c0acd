package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campus-events/server/internal/config"
)

func newRateLimited(t testing.TB, cfg config.RateLimitConfig) http.Handler {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimit(ctx, cfg)(okHandler())
}

func TestTierPublic_RateLimit(t *testing.T) {
	handler := newRateLimited(t, config.RateLimitConfig{PublicPerMinute: 2})
	clientIP := "192.168.1.102:12345"

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = clientIP
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.RemoteAddr = clientIP
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", res.Code)
	}
	if got := res.Header().Get("Retry-After"); got != "60" {
		t.Errorf("expected Retry-After 60, got %s", got)
	}
	if got := res.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem response, got %s", got)
	}
}

func TestRateLimit_PerIPIsolation(t *testing.T) {
	handler := newRateLimited(t, config.RateLimitConfig{PublicPerMinute: 1})

	for _, addr := range []string{"10.0.0.1:1000", "10.0.0.2:1000"} {
		req := httptest.NewRequest(http.MethodPost, "/api/registrations", nil)
		req.RemoteAddr = addr
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", addr, res.Code)
		}
	}
}

func TestRateLimit_ZeroMeansUnlimited(t *testing.T) {
	handler := newRateLimited(t, config.RateLimitConfig{PublicPerMinute: 1, AdminPerMinute: 0})

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		req.RemoteAddr = "10.0.0.9:1000"
		req = req.WithContext(WithRateLimitTier(req.Context(), TierAdmin))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: admin tier should be unlimited, got %d", i+1, res.Code)
		}
	}
}

func TestRateLimit_ProbesNeverLimited(t *testing.T) {
	handler := newRateLimited(t, config.RateLimitConfig{PublicPerMinute: 1})

	for _, path := range []string{"/healthz", "/readyz", "/health", "/metrics"} {
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "10.0.0.3:1000"
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != http.StatusOK {
				t.Fatalf("%s should never be rate limited, got status %d", path, res.Code)
			}
		}
	}
}

func TestLimiterStoreCleanup(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 5})
	if store.limiter(TierPublic, "a") == nil {
		t.Fatal("expected limiter")
	}
	store.limiters["public:a"].lastSeen = time.Now().Add(-time.Hour)
	store.limiter(TierPublic, "b")

	store.cleanup(time.Now(), 15*time.Minute)

	if _, ok := store.limiters["public:a"]; ok {
		t.Error("stale limiter should be removed")
	}
	if _, ok := store.limiters["public:b"]; !ok {
		t.Error("fresh limiter should be kept")
	}
}

func TestClientKey_TrustedProxyUsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.45, 198.51.100.1")

	if key := clientKey(req, []string{"10.0.0.0/8"}); key != "203.0.113.45" {
		t.Errorf("expected first X-Forwarded-For IP, got %s", key)
	}
}

func TestClientKey_TrustedProxyFallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Real-IP", "203.0.113.45")

	if key := clientKey(req, []string{"10.0.0.0/8"}); key != "203.0.113.45" {
		t.Errorf("expected X-Real-IP, got %s", key)
	}
}

func TestClientKey_UntrustedIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.45")

	if key := clientKey(req, nil); key != "192.168.1.100" {
		t.Errorf("expected RemoteAddr host, got %s", key)
	}
	if key := clientKey(req, []string{"not-a-cidr"}); key != "192.168.1.100" {
		t.Errorf("expected RemoteAddr host with invalid CIDR, got %s", key)
	}
}

func TestWithRateLimitTierHandler_SetsContextValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()

	handler := WithRateLimitTierHandler(TierAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier)
		if !ok {
			t.Fatal("tier not set in context")
		}
		if tier != TierAdmin {
			t.Errorf("expected TierAdmin, got %s", tier)
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("handler failed with status %d", res.Code)
	}
}

func BenchmarkRateLimit_Allow(b *testing.B) {
	handler := newRateLimited(b, config.RateLimitConfig{PublicPerMinute: 1000})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.RemoteAddr = "192.168.1.100:12345"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
