package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter allows each client IP at most limit requests per window.
type RateLimiter struct {
	limits sync.Map
	limit  int32
	window time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

type clientWindow struct {
	requests atomic.Int32
	started  atomic.Int64
}

// NewRateLimiter starts a cleanup goroutine that runs until ctx is
// cancelled or Stop is called.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration, cleanupInterval time.Duration) *RateLimiter {
	ctx, cancel := context.WithCancel(ctx)
	rl := &RateLimiter{
		limit:  int32(limit),
		window: window,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go rl.cleanup(ctx, cleanupInterval)

	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.cancel()
}

// Done is closed once the cleanup goroutine has exited.
func (rl *RateLimiter) Done() <-chan struct{} {
	return rl.done
}

func (rl *RateLimiter) cleanup(ctx context.Context, interval time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.limits.Range(func(key, value interface{}) bool {
				data := value.(*clientWindow)
				if now.Sub(time.Unix(0, data.started.Load())) > rl.window {
					rl.limits.Delete(key)
				}
				return true
			})
		}
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

// allow counts one request for clientIP and reports whether it fits the
// current window.
func (rl *RateLimiter) allow(clientIP string, now time.Time) bool {
	fresh := &clientWindow{}
	fresh.started.Store(now.UnixNano())
	value, _ := rl.limits.LoadOrStore(clientIP, fresh)
	data := value.(*clientWindow)

	started := data.started.Load()
	if now.Sub(time.Unix(0, started)) > rl.window {
		if data.started.CompareAndSwap(started, now.UnixNano()) {
			data.requests.Store(0)
		}
	}

	return data.requests.Add(1) <= rl.limit
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(getClientIP(r), time.Now()) {
			RespondMessage(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
