package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/epicstrade/rifas/internal/clock"
)

var rateEpoch = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

func newTestLimiter(t *testing.T, rate, burst int) (*RateLimiter, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(rateEpoch)
	rl := NewRateLimiter(RateLimitConfig{Rate: rate, Burst: burst, Window: time.Minute, Clock: clk})
	t.Cleanup(rl.Stop)
	return rl, clk
}

func TestNewRateLimiter_DefaultConfig(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()

	if rl.rate != 100 || rl.window != time.Minute || rl.burst != 20 {
		t.Errorf("unexpected defaults rate=%d window=%v burst=%d", rl.rate, rl.window, rl.burst)
	}
}

func TestAllow_ExhaustsRatePlusBurst(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 3, 2)

	for i := 0; i < 5; i++ {
		allowed, remaining, _ := rl.Allow("user:1")
		if !allowed {
			t.Fatalf("request %d denied", i+1)
		}
		if remaining != 4-i {
			t.Errorf("request %d: remaining %d, want %d", i+1, remaining, 4-i)
		}
	}
	if allowed, _, _ := rl.Allow("user:1"); allowed {
		t.Error("sixth request should be denied")
	}
	if allowed, _, _ := rl.Allow("user:2"); !allowed {
		t.Error("separate keys have separate buckets")
	}
}

func TestAllow_RefillsOverTime(t *testing.T) {
	t.Parallel()
	rl, clk := newTestLimiter(t, 6, 0)

	for i := 0; i < 6; i++ {
		rl.Allow("k")
	}
	if allowed, _, _ := rl.Allow("k"); allowed {
		t.Fatal("bucket should be empty")
	}

	clk.Advance(30 * time.Second) // half the window refills 3 tokens
	for i := 0; i < 3; i++ {
		if allowed, _, _ := rl.Allow("k"); !allowed {
			t.Fatalf("partial refill request %d denied", i+1)
		}
	}
	if allowed, _, _ := rl.Allow("k"); allowed {
		t.Error("partial refill should only add 3 tokens")
	}

	clk.Advance(time.Minute)
	if allowed, remaining, _ := rl.Allow("k"); !allowed || remaining != 5 {
		t.Errorf("full refill: allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestCleanup_RemovesStaleBuckets(t *testing.T) {
	t.Parallel()
	rl, clk := newTestLimiter(t, 10, 0)

	rl.Allow("old")
	clk.Advance(90 * time.Second)
	rl.Allow("fresh")
	clk.Advance(45 * time.Second)
	rl.cleanupExpired()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.buckets["old"]; ok {
		t.Error("stale bucket kept")
	}
	if _, ok := rl.buckets["fresh"]; !ok {
		t.Error("fresh bucket removed")
	}
}

func TestAllow_ConcurrentAccess_NeverOverAdmits(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 40, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _, _ := rl.Allow("shared"); allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Errorf("expected exactly 50 admitted, got %d", admitted)
	}
}

func TestRateLimitMiddleware_DeniedRequest_Returns429(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 0)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/v1/auctions/auction:1/bids", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, "user:1"))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("limit header = %q", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
}

func TestRateLimitMiddleware_AnonymousKeyedByAddress(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 0)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"10.0.0.1:5000", "10.0.0.2:5000"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/faq", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", addr, rr.Code)
		}
	}
}
