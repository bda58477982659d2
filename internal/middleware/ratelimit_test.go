package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func hit(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", http.NoBody)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimiterBurstThenReject(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(1, 3, WithRateClock(clock.now))
	h := rl.Handler(okHandler())

	for i := range 3 {
		if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := hit(h, "10.0.0.1:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}

	clock.t = clock.t.Add(time.Second)
	if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusOK {
		t.Fatalf("expected refill after one second, got %d", rec.Code)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Handler(okHandler())

	if rec := hit(h, "10.0.0.1:1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.2:1"); rec.Code != http.StatusOK {
		t.Fatalf("second client should have its own bucket, got %d", rec.Code)
	}
	if rl.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", rl.Len())
	}
}

func TestRateLimiterCustomKey(t *testing.T) {
	rl := NewRateLimiter(1, 1, WithKeyFunc(func(r *http.Request) string { return r.Header.Get("X-Customer-ID") }))
	h := rl.Handler(okHandler())

	req := func(customer string) int {
		r := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		r.Header.Set("X-Customer-ID", customer)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}
	if req("acme") != http.StatusOK || req("acme") != http.StatusTooManyRequests || req("globex") != http.StatusOK {
		t.Fatal("expected per-customer buckets")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(1, 1, WithRateClock(clock.now))
	rl.allow("a")
	clock.t = clock.t.Add(time.Hour)
	rl.allow("b")

	rl.cleanup(time.Minute)
	if rl.Len() != 1 {
		t.Fatalf("expected the idle bucket removed, %d left", rl.Len())
	}
}
