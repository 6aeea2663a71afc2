package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// defaultIdleTTL is how long an idle client bucket is kept before Sweep drops it.
const defaultIdleTTL = 10 * time.Minute

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	RetryAfter time.Duration
}

// Config holds the token bucket parameters applied to every client.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	IdleTTL           time.Duration
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitService keeps one token bucket per client key in memory
type RateLimitService struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(cfg Config, logger *zap.Logger) *RateLimitService {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &RateLimitService{
		clients: make(map[string]*clientBucket),
		limit:   limit,
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		now:     time.Now,
		logger:  logger,
	}
}

// CheckLimit takes one token from the client's bucket.
// A denied request reports how long until a token is available.
func (s *RateLimitService) CheckLimit(clientKey string) RateLimitResult {
	now := s.now()

	s.mu.Lock()
	bucket, ok := s.clients[clientKey]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[clientKey] = bucket
	}
	bucket.lastSeen = now
	s.mu.Unlock()

	reservation := bucket.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return RateLimitResult{Allowed: false, Limit: s.burst}
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		s.logger.Debug("rate limit exceeded",
			zap.String("client", clientKey),
			zap.Duration("retry_after", delay))
		return RateLimitResult{Allowed: false, Limit: s.burst, RetryAfter: delay}
	}

	return RateLimitResult{Allowed: true, Limit: s.burst}
}

// Sweep drops buckets idle for longer than the configured TTL and returns how many were removed
func (s *RateLimitService) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, bucket := range s.clients {
		if bucket.lastSeen.Before(cutoff) {
			delete(s.clients, key)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked client buckets
func (s *RateLimitService) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
