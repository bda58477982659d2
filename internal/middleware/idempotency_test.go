package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/PaperDesk/internal/middleware"
)

// mapCache is an in-memory cache.Cache.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// countingHandler answers with the call number and the configured status.
func countingHandler(calls *atomic.Int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	var calls atomic.Int32
	h := middleware.Idempotency(newMapCache(), time.Hour)(countingHandler(&calls, http.StatusCreated))

	first := post(h, "/api/v1/workflows", "sale-1")
	second := post(h, "/api/v1/workflows", "sale-1")

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replay of %q, got %d %q", first.Body.String(), second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay marker header")
	}
}

func TestIdempotencyPassThrough(t *testing.T) {
	tests := []struct {
		name   string
		method string
		key    string
		status int
	}{
		{"no key", http.MethodPost, "", http.StatusCreated},
		{"get request", http.MethodGet, "k", http.StatusOK},
		{"failed response not stored", http.MethodPost, "k", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			h := middleware.Idempotency(newMapCache(), time.Hour)(countingHandler(&calls, tc.status))
			for range 2 {
				req := httptest.NewRequest(tc.method, "/api/v1/workflows", http.NoBody)
				if tc.key != "" {
					req.Header.Set("Idempotency-Key", tc.key)
				}
				h.ServeHTTP(httptest.NewRecorder(), req)
			}
			if calls.Load() != 2 {
				t.Fatalf("expected handler to run twice, ran %d times", calls.Load())
			}
		})
	}
}

func TestIdempotencyKeyScopedByPath(t *testing.T) {
	var calls atomic.Int32
	h := middleware.Idempotency(newMapCache(), time.Hour)(countingHandler(&calls, http.StatusOK))

	post(h, "/api/v1/workflows", "same")
	post(h, "/api/v1/workflows/batch", "same")

	if calls.Load() != 2 {
		t.Fatalf("expected distinct paths to run separately, ran %d times", calls.Load())
	}
}

func TestIdempotencyRejectsLongKey(t *testing.T) {
	var calls atomic.Int32
	h := middleware.Idempotency(newMapCache(), time.Hour)(countingHandler(&calls, http.StatusOK))

	rec := post(h, "/api/v1/workflows", strings.Repeat("k", 300))
	if rec.Code != http.StatusBadRequest || calls.Load() != 0 {
		t.Fatalf("expected 400 without calling the handler, got %d after %d calls", rec.Code, calls.Load())
	}
}
