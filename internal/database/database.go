package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"techstore-api/internal/config"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// New opens a bounded connection pool against PostgreSQL and verifies
// connectivity. The pool queues acquisitions when exhausted; callers bound the
// wait with their request context, so exhaustion surfaces as a deadline error
// rather than an immediate failure.
func New(cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Schema,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// The database may still be starting alongside us; retry the first ping
	// with exponential backoff before giving up.
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("Database not reachable yet, retrying", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return db, nil
}

// Health reports pool statistics for the health endpoint.
func Health(db *sql.DB) map[string]string {
	stats := db.Stats()

	health := map[string]string{
		"status":              "up",
		"open_connections":    strconv.Itoa(stats.OpenConnections),
		"in_use":              strconv.Itoa(stats.InUse),
		"idle":                strconv.Itoa(stats.Idle),
		"wait_count":          strconv.FormatInt(stats.WaitCount, 10),
		"wait_duration":       stats.WaitDuration.String(),
		"max_idle_closed":     strconv.FormatInt(stats.MaxIdleClosed, 10),
		"max_lifetime_closed": strconv.FormatInt(stats.MaxLifetimeClosed, 10),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		health["status"] = "down"
		health["error"] = err.Error()
	}

	return health
}
