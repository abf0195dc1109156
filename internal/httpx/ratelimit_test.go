package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Limit(t *testing.T) {
	t.Run("allows requests within burst", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)
		handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
			}
		}
	})

	t.Run("rejects requests over burst", func(t *testing.T) {
		rl := NewRateLimiter(0.001, 1)
		handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.2:1234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
		}

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("second request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
		}
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		rl := NewRateLimiter(0.001, 1)
		handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		first := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		first.RemoteAddr = "192.0.2.3:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		if rec.Code != http.StatusOK {
			t.Fatalf("first client: status = %d, want %d", rec.Code, http.StatusOK)
		}

		second := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		second.RemoteAddr = "192.0.2.4:1234"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		if rec.Code != http.StatusOK {
			t.Errorf("second client: status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)

		rl.limiterFor("192.0.2.5")
		rl.limiterFor("192.0.2.6")
		if len(rl.clients) != 2 {
			t.Fatalf("clients = %d, want 2", len(rl.clients))
		}

		// Age one client past the idle TTL and make the next lookup sweep.
		rl.mu.Lock()
		rl.clients["192.0.2.5"].lastSeen = time.Now().Add(-2 * rl.idleTTL)
		rl.lastSweep = time.Now().Add(-2 * rl.idleTTL)
		rl.mu.Unlock()

		rl.limiterFor("192.0.2.6")

		rl.mu.Lock()
		defer rl.mu.Unlock()
		if _, exists := rl.clients["192.0.2.5"]; exists {
			t.Error("idle client was not evicted")
		}
		if _, exists := rl.clients["192.0.2.6"]; !exists {
			t.Error("active client was evicted")
		}
	})
}
