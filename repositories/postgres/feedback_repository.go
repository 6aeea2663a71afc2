package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/repositories"
)

// Executor is satisfied by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// FeedbackRepository implements the repositories.FeedbackRepository interface
type FeedbackRepository struct {
	db     Executor
	logger *zap.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db Executor, logger *zap.Logger) repositories.FeedbackRepository {
	return &FeedbackRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a feedback record
func (r *FeedbackRepository) Insert(ctx context.Context, record *models.FeedbackRecord) error {
	query := `
		INSERT INTO feedback_records (
			id, question, solution, rating, comments, request_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Question,
		record.Solution,
		record.Rating,
		record.Comments,
		record.RequestID,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback record: %w", err)
	}

	r.logger.Debug("feedback record inserted", zap.String("id", record.ID.String()), zap.Int("rating", record.Rating))
	return nil
}

// Stats aggregates ratings with a single grouped query
func (r *FeedbackRepository) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	query := `
		SELECT rating, COUNT(*)
		FROM feedback_records
		GROUP BY rating
		ORDER BY rating
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	defer rows.Close()

	return scanStats(rows)
}

// ListRecent returns up to limit records, newest first
func (r *FeedbackRepository) ListRecent(ctx context.Context, limit int) ([]*models.FeedbackRecord, error) {
	query := `
		SELECT id, question, solution, rating, comments, request_id, created_at
		FROM feedback_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanStats(rows *sql.Rows) (*models.FeedbackStats, error) {
	stats := models.NewFeedbackStats()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("failed to scan feedback aggregate: %w", err)
		}
		stats.AddCount(rating, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback aggregate: %w", err)
	}
	return stats, nil
}

func scanRecords(rows *sql.Rows) ([]*models.FeedbackRecord, error) {
	records := []*models.FeedbackRecord{}
	for rows.Next() {
		rec := &models.FeedbackRecord{}
		if err := rows.Scan(
			&rec.ID,
			&rec.Question,
			&rec.Solution,
			&rec.Rating,
			&rec.Comments,
			&rec.RequestID,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback records: %w", err)
	}
	return records, nil
}
