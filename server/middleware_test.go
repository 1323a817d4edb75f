package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		xff      string
		remote   string
		expected string
	}{
		{"no header", "", "127.0.0.1:5555", "127.0.0.1:5555"},
		{"single address", "203.0.113.7", "127.0.0.1:5555", "203.0.113.7"},
		{"proxy chain", "203.0.113.7, 10.0.0.2", "127.0.0.1:5555", "203.0.113.7"},
		{"ipv6 loopback proxy", "203.0.113.7", "[::1]:5555", "203.0.113.7"},
		{"garbage ignored", "not-an-ip", "127.0.0.1:5555", "127.0.0.1:5555"},
		{"header from remote client ignored", "198.51.100.1", "10.0.0.1:5555", "10.0.0.1:5555"},
		{"header from public client ignored", "127.0.0.1", "203.0.113.9:4444", "203.0.113.9:4444"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expected, seen)
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := testConfig()
	h := RequestSizeMiddleware(cfg)(okHandler())

	t.Run("body too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/medications", strings.NewReader(strings.Repeat("a", 2048)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "Request body too large")
	})

	t.Run("headers too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/medications", nil)
		req.Header.Set("X-Padding", strings.Repeat("b", 5000))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestHeaderFieldsTooLarge, rec.Code)
	})

	t.Run("within limits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/medications?name=ibuprofen", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path string
		cost int64
	}{
		{"/metrics", 0},
		{"/health", 5},
		{"/v1/medications", 50},
		{"/v1/medications/ibuprofen", 50},
		{"/v1/medicationsx", 20},
		{"/", 20},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.cost, getTokenCost(req))
		})
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter()
	h := rl.Middleware(okHandler())

	serve := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/medications/aspirin", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve("198.51.100.1").Code)
	}

	rec := serve("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, serve("198.51.100.2").Code)
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", clientIP("203.0.113.7:4242"))
	assert.Equal(t, "203.0.113.7", clientIP("203.0.113.7"))
	assert.Equal(t, "2001:db8::1", clientIP("[2001:db8::1]:4242"))
}

func TestRateLimiterHeaders(t *testing.T) {
	rl := NewRateLimiter()
	h := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.51.100.3"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "1000", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Rate"))
	assert.Equal(t, "995", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterEvictIdle(t *testing.T) {
	rl := NewRateLimiter()

	rl.getBucket("198.51.100.4")
	rl.getBucket("198.51.100.5").TakeAvailable(500)

	assert.Equal(t, 1, rl.evictIdle())
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "198.51.100.5")
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter()
	rl.Start(10 * time.Millisecond)
	rl.Stop()
	rl.Stop()
}
