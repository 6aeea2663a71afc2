// Package feedback records user ratings of delivered answers through a
// single writer lane and serves aggregate statistics.
package feedback

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/math-agent/internal/guardrail"
	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/repositories"
	"github.com/upb/math-agent/services"
)

const (
	writeTimeout   = 5 * time.Second
	maxRecentLimit = 100
)

// Config holds configuration for the feedback Service
type Config struct {
	BufferSize  int // Size of the write lane
	RecentLimit int // Default page size for Recent
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  256,
		RecentLimit: 20,
	}
}

// writeRequest is one queued append with its reply channel.
type writeRequest struct {
	record *models.FeedbackRecord
	reply  chan error
}

// Service serializes feedback appends through one writer goroutine.
// Reads go straight to the repository and run concurrently.
type Service struct {
	repo    repositories.FeedbackRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     Config

	writes  chan *writeRequest
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards started and closed; read-held while enqueueing
	started bool
	closed  bool
}

// NewService creates a new feedback service
func NewService(repo repositories.FeedbackRepository, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Service {
	defaults := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = defaults.RecentLimit
	}

	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		writes:  make(chan *writeRequest, cfg.BufferSize),
	}
}

// Start starts the writer goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("feedback service already started")
	}
	if s.closed {
		return fmt.Errorf("feedback service already stopped")
	}

	s.wg.Add(1)
	go s.writer()

	s.started = true
	s.logger.Info("started feedback service", zap.Int("buffer_size", s.cfg.BufferSize))
	return nil
}

// Stop closes the write lane and waits for queued writes to drain
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("feedback service not started")
	}
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := len(s.writes)
	close(s.writes)
	s.mu.Unlock()

	s.logger.Info("stopping feedback service", zap.Int("pending_writes", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("feedback service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("feedback service stop timeout after %v", timeout)
	}
}

// Record validates and appends one rating, returning once it is persisted.
func (s *Service) Record(ctx context.Context, question, solution string, rating int, comments string) (*models.FeedbackRecord, error) {
	if !models.ValidRating(rating) {
		return nil, services.NewDomainError(services.ErrorTypeInvalidRating,
			fmt.Sprintf("Rating must be between %d and %d.", models.MinRating, models.MaxRating), nil).
			WithDetail("rating", rating)
	}

	comments, redacted := guardrail.RedactPII(strings.TrimSpace(comments))
	if len(redacted) > 0 {
		observability.FromContext(ctx, s.logger).Info("redacted personal data from feedback comments",
			zap.Any("kinds", redacted))
	}

	record := models.NewFeedbackRecord(strings.TrimSpace(question), strings.TrimSpace(solution), rating).
		WithComments(comments).
		WithRequest(observability.RequestID(ctx))

	req := &writeRequest{record: record, reply: make(chan error, 1)}
	if err := s.enqueue(ctx, req); err != nil {
		return nil, err
	}

	select {
	case err := <-req.reply:
		if err != nil {
			return nil, services.WrapInternal("failed to store feedback", err)
		}
	case <-ctx.Done():
		return nil, services.WrapInternal("feedback write interrupted", ctx.Err())
	}

	s.metrics.RecordFeedback(strconv.Itoa(rating))
	observability.FromContext(ctx, s.logger).Info("feedback recorded",
		zap.String("feedback_id", record.ID.String()),
		zap.Int("rating", rating),
		zap.Bool("flagged", record.Flagged()))

	return record, nil
}

func (s *Service) enqueue(ctx context.Context, req *writeRequest) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.closed {
		return services.ErrStoreClosed
	}

	select {
	case s.writes <- req:
		return nil
	case <-ctx.Done():
		return services.WrapInternal("feedback write lane unavailable", ctx.Err())
	}
}

// Stats returns the aggregate over every stored rating
func (s *Service) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to aggregate feedback", err)
	}
	return stats, nil
}

// Recent returns the newest records for the review queue. A non-positive
// limit uses the configured default.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.FeedbackRecord, error) {
	if limit <= 0 {
		limit = s.cfg.RecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list feedback", err)
	}
	return records, nil
}

// writer is the only goroutine that appends to the repository.
func (s *Service) writer() {
	defer s.wg.Done()

	for req := range s.writes {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.repo.Insert(ctx, req.record)
		cancel()

		if err != nil {
			s.logger.Error("failed to persist feedback",
				zap.String("feedback_id", req.record.ID.String()),
				zap.Error(err))
		}
		req.reply <- err
	}
}

// Pending reports how many writes are queued
func (s *Service) Pending() int {
	return len(s.writes)
}
