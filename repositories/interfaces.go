package repositories

import (
	"context"

	"github.com/upb/math-agent/models"
)

// FeedbackRepository handles the append-only feedback log
type FeedbackRepository interface {
	// Insert appends a new feedback record. Records are never updated.
	Insert(ctx context.Context, record *models.FeedbackRecord) error

	// Stats aggregates every stored rating
	Stats(ctx context.Context) (*models.FeedbackStats, error)

	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.FeedbackRecord, error)
}

// Repositories holds the storage handles opened at startup
type Repositories struct {
	Feedback FeedbackRepository

	// Kind names the backing store (memory, postgres, sqlite)
	Kind string

	closers []func() error
}

// NewRepositories wraps a feedback repository together with the handles
// that must be closed on shutdown.
func NewRepositories(kind string, feedback FeedbackRepository, closers ...func() error) *Repositories {
	return &Repositories{
		Feedback: feedback,
		Kind:     kind,
		closers:  closers,
	}
}

// Close releases the underlying connections, returning the first error
func (r *Repositories) Close() error {
	var first error
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
