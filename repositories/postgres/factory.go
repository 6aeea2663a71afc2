package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/math-agent/config"
	"github.com/upb/math-agent/repositories"
)

// Open connects to PostgreSQL, ensures the schema exists and returns the
// feedback repository bound to the pool.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*repositories.Repositories, *DB, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres feedback store: %w", err)
	}

	repos := repositories.NewRepositories(config.FeedbackStorePostgres, NewFeedbackRepository(db.DB, logger), db.Close)
	return repos, db, nil
}
