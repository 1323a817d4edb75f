package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giygas/medlookup-api/config"
	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/metrics"
	"github.com/juju/ratelimit"
)

const (
	bucketRate     = 3    // tokens refilled per second
	bucketCapacity = 1000 // burst
)

// RealIPMiddleware takes the client address from the first X-Forwarded-For
// entry. The header is only trusted from a loopback peer, the reverse proxy
// on the same host; anyone else keeps their socket address.
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" && fromLoopback(r.RemoteAddr) {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				r.RemoteAddr = ip
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequestSizeMiddleware rejects requests whose body or headers exceed the configured limits
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > cfg.MaxRequestBody {
				logging.Warn("Request body too large",
					"content_length", r.ContentLength,
					"max_allowed", cfg.MaxRequestBody,
					"remote_addr", r.RemoteAddr,
				)
				respondWithJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", cfg.MaxRequestBody),
				})
				return
			}

			var headerSize int64
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}
			if headerSize > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr,
				)
				respondWithJSON(w, http.StatusRequestHeaderFieldsTooLarge, map[string]string{
					"error": fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", cfg.MaxHeaderSize),
				})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBody)
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter keeps one token bucket per client address
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*ratelimit.Bucket
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a limiter. Call Start to evict idle clients.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*ratelimit.Bucket),
		stop:    make(chan struct{}),
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.clients[clientIP]
	if !ok {
		bucket = ratelimit.NewBucketWithRate(bucketRate, bucketCapacity)
		rl.clients[clientIP] = bucket
		metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	}
	return bucket
}

// evictIdle drops clients whose bucket refilled completely
func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for ip, bucket := range rl.clients {
		if bucket.Available() >= bucket.Capacity() {
			delete(rl.clients, ip)
			evicted++
		}
	}
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	return evicted
}

// Start runs evictIdle every interval until Stop
func (rl *RateLimiter) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				if n := rl.evictIdle(); n > 0 {
					logging.Debug("Evicted idle rate limit buckets", "count", n)
				}
			}
		}
	}()
}

// Stop ends the eviction goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func fromLoopback(remoteAddr string) bool {
	ip := net.ParseIP(clientIP(remoteAddr))
	return ip != nil && ip.IsLoopback()
}

// clientIP drops the port so every connection from one host shares a bucket
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// getTokenCost prices a request. Lookups fan out to five upstream calls and
// cost the most; health checks and scrapes are cheap or free.
func getTokenCost(r *http.Request) int64 {
	switch path := r.URL.Path; {
	case path == "/metrics":
		return 0
	case path == "/health":
		return 5
	case path == "/v1/medications" || strings.HasPrefix(path, "/v1/medications/"):
		return 50
	default:
		return 20
	}
}

// Middleware enforces the per-client token budget
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := rl.getBucket(clientIP(r.RemoteAddr))
		cost := getTokenCost(r)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(bucketCapacity))
		w.Header().Set("X-RateLimit-Rate", strconv.Itoa(bucketRate))

		if bucket.TakeAvailable(cost) < cost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			respondWithJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Failed to encode JSON response", "error", err)
	}
}
