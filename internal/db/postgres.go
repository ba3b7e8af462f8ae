package db

import (
	"context"
	"fmt"
	"time"

	"github.com/balu-dk/e3dc-gateway/internal/db/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS device_commands (
		id         UUID PRIMARY KEY,
		operation  TEXT NOT NULL,
		payload    JSONB NOT NULL DEFAULT '{}'::jsonb,
		outcome    TEXT NOT NULL,
		message    TEXT NOT NULL DEFAULT '',
		remote_ip  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)
`

// PostgresStore handles database operations
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore initializes a new PostgreSQL connection pool
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the audit table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create device_commands table: %w", err)
	}
	return nil
}

// SaveCommand stores an audit record of a device mutation
func (s *PostgresStore) SaveCommand(ctx context.Context, cmd *models.DeviceCommand) error {
	query := `
		INSERT INTO device_commands (
			id, operation, payload, outcome, message, remote_ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now()
	}
	payload := []byte(cmd.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := s.pool.Exec(ctx, query,
		cmd.ID, cmd.Operation, payload, cmd.Outcome, cmd.Message, cmd.RemoteIP, cmd.CreatedAt,
	)
	return err
}
