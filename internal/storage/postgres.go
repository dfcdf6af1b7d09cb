package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
)

// PostgresSink implements Sink using PostgreSQL. Each row is a
// full JSON snapshot of the task at the time of the event rather than a
// fixed opportunity schema, since a task mutates many times over its
// lifetime.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresSink creates a new PostgreSQL-backed audit sink.
func NewPostgresSink(cfg *PostgresConfig) (*PostgresSink, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(taskEventsSchema); err != nil {
		return nil, fmt.Errorf("migrate task_events table: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresSink{db: db, logger: cfg.Logger}, nil
}

const taskEventsSchema = `
CREATE TABLE IF NOT EXISTS task_events (
	id          BIGSERIAL PRIMARY KEY,
	task_id     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	market_id   TEXT NOT NULL,
	status      TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	snapshot    JSONB NOT NULL
)`

// RecordTaskEvent inserts a JSON snapshot of the task as of this mutation.
func (p *PostgresSink) RecordTaskEvent(ctx context.Context, event taskstore.TaskEvent) error {
	snapshot, err := json.Marshal(event.Task)
	if err != nil {
		return fmt.Errorf("marshal task snapshot: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO task_events (task_id, kind, market_id, status, recorded_at, snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Task.ID, event.Kind, event.Task.MarketID, event.Task.Status, event.At, snapshot,
	)
	if err != nil {
		return fmt.Errorf("insert task event: %w", err)
	}

	p.logger.Debug("task-event-stored",
		zap.String("task-id", event.Task.ID),
		zap.String("kind", event.Kind))
	return nil
}

// Close closes the database connection.
func (p *PostgresSink) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
