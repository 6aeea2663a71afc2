// Package memory provides in-process repositories for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/repositories"
)

// FeedbackRepository keeps the feedback log in a slice
type FeedbackRepository struct {
	mu      sync.RWMutex
	records []models.FeedbackRecord
}

// NewFeedbackRepository creates an empty in-memory feedback log
func NewFeedbackRepository() repositories.FeedbackRepository {
	return &FeedbackRepository{}
}

// Insert appends a copy of record
func (r *FeedbackRepository) Insert(ctx context.Context, record *models.FeedbackRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.records = append(r.records, *record)
	r.mu.Unlock()
	return nil
}

// Stats aggregates every stored rating
func (r *FeedbackRepository) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.NewFeedbackStats()
	for i := range r.records {
		stats.Add(r.records[i].Rating)
	}
	return stats, nil
}

// ListRecent returns up to limit records, newest first
func (r *FeedbackRepository) ListRecent(ctx context.Context, limit int) ([]*models.FeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}

	out := make([]*models.FeedbackRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		out = append(out, &rec)
	}
	return out, nil
}
