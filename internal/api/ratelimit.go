package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig sets the per-client request budget.
type RateLimiterConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// tokenBucket holds up to capacity tokens and regains rate tokens per
// second. It also throttles inbound websocket frames.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func newTokenBucket(capacity, rate float64) *tokenBucket {
	return &tokenBucket{tokens: capacity, capacity: capacity, rate: rate, last: time.Now()}
}

// levelLocked returns the token count at now without spending any.
func (b *tokenBucket) levelLocked(now time.Time) float64 {
	return min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.rate)
}

// take spends one token if there is one.
func (b *tokenBucket) take(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.levelLocked(now)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *tokenBucket) allow() bool { return b.take(time.Now()) }

// status reports the whole tokens left and when the bucket will be full.
func (b *tokenBucket) status(now time.Time) (int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	level := b.levelLocked(now)
	if level >= b.capacity || b.rate <= 0 {
		return int(level), now
	}
	wait := (b.capacity - level) / b.rate
	return int(level), now.Add(time.Duration(wait * float64(time.Second)))
}

func (b *tokenBucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// RateLimiter keeps one bucket per client address. Idle buckets are dropped
// by a background sweep until Close is called.
type RateLimiter struct {
	cfg     RateLimiterConfig
	idleTTL time.Duration

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter with cfg.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg,
		idleTTL: 5 * time.Minute,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	go rl.sweep(time.Minute)
	return rl
}

func (rl *RateLimiter) bucket(client string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[client]
	if !ok {
		b = newTokenBucket(float64(rl.cfg.BurstSize), float64(rl.cfg.RequestsPerMinute)/60)
		rl.buckets[client] = b
	}
	return b
}

// Allow spends one request from client's budget.
func (rl *RateLimiter) Allow(client string) bool {
	return rl.bucket(client).allow()
}

func (rl *RateLimiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-t.C:
			rl.evict(now)
		}
	}
}

// evict drops buckets untouched for longer than idleTTL.
func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, b := range rl.buckets {
		if now.Sub(b.idleSince()) > rl.idleTTL {
			delete(rl.buckets, client)
		}
	}
}

// Close stops the sweep. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over budget with 429 and reports the budget
// in X-RateLimit-* headers on every response.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := rl.bucket(getClientIP(r))
		now := time.Now()
		left, full := b.status(now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerMinute))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(full.Unix(), 10))

		if !b.take(now) {
			retry := int(full.Sub(now).Seconds()) + 1
			h.Set("Retry-After", strconv.Itoa(retry))
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Rate limit exceeded. Try again in "+strconv.Itoa(retry)+" seconds.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP picks the first valid address among the leftmost
// X-Forwarded-For entry, X-Real-IP and the connection's remote address.
func getClientIP(r *http.Request) string {
	forwarded, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	for _, candidate := range []string{forwarded, r.Header.Get("X-Real-IP"), remote} {
		candidate = strings.TrimSpace(candidate)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	return "unknown"
}
