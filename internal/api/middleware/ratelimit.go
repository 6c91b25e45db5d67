package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// RedisLimiter counts requests per key in fixed one-minute windows shared by
// every replica pointing at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: requestsPerMinute, window: time.Minute}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	if l == nil || l.client == nil || l.limit <= 0 {
		return nil
	}
	slot := time.Now().UTC().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("voice:rpm:%s:%d", key, slot)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}
	if int(cnt) > l.limit {
		return ErrLimitExceeded
	}
	return nil
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// MemoryLimiter is a per-process token bucket used when Redis is unavailable.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     float64 // tokens per second
	burst    float64 // max tokens
	stop     chan struct{}
	now      func() time.Time
}

func NewMemoryLimiter(requestsPerMinute int) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     float64(requestsPerMinute) / 60,
		burst:    float64(requestsPerMinute),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) error {
	if rl.burst <= 0 {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{tokens: rl.burst, lastSeen: now}
		rl.visitors[key] = v
	}

	v.tokens += now.Sub(v.lastSeen).Seconds() * rl.rate
	if v.tokens > rl.burst {
		v.tokens = rl.burst
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return ErrLimitExceeded
	}
	v.tokens--
	return nil
}

// Close stops the background cleanup.
func (rl *MemoryLimiter) Close() {
	close(rl.stop)
}

func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if rl.now().Sub(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects clients over their allowance with 429. Limiter backend
// errors fail open.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := l.Allow(r.Context(), clientKey(r))
			switch {
			case errors.Is(err, ErrLimitExceeded):
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			case err != nil:
				slog.Warn("rate limiter unavailable, allowing request", "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
