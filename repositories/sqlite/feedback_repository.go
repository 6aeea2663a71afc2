package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/repositories"
)

// FeedbackRepository implements repositories.FeedbackRepository on SQLite
type FeedbackRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *sql.DB, logger *zap.Logger) repositories.FeedbackRepository {
	return &FeedbackRepository{db: db, logger: logger}
}

// Insert appends a feedback record
func (r *FeedbackRepository) Insert(ctx context.Context, record *models.FeedbackRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback_records (id, question, solution, rating, comments, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(),
		record.Question,
		record.Solution,
		record.Rating,
		record.Comments,
		record.RequestID,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback record: %w", err)
	}

	r.logger.Debug("feedback record inserted", zap.String("id", record.ID.String()), zap.Int("rating", record.Rating))
	return nil
}

// Stats aggregates ratings with a single grouped query
func (r *FeedbackRepository) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rating, COUNT(*)
		FROM feedback_records
		GROUP BY rating`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	defer rows.Close()

	stats := models.NewFeedbackStats()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("failed to scan feedback aggregate: %w", err)
		}
		stats.AddCount(rating, count)
	}
	return stats, rows.Err()
}

// ListRecent returns up to limit records, newest first
func (r *FeedbackRepository) ListRecent(ctx context.Context, limit int) ([]*models.FeedbackRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question, solution, rating, comments, request_id, created_at
		FROM feedback_records
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	records := []*models.FeedbackRecord{}
	for rows.Next() {
		var (
			rec     models.FeedbackRecord
			id      string
			created int64
		)
		if err := rows.Scan(&id, &rec.Question, &rec.Solution, &rec.Rating, &rec.Comments, &rec.RequestID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan feedback record: %w", err)
		}
		if err := rec.ID.Scan(id); err != nil {
			return nil, fmt.Errorf("invalid feedback id %q: %w", id, err)
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		records = append(records, &rec)
	}
	return records, rows.Err()
}
