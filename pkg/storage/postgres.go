package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/ledgerops/feetrack/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveSample persists one tracker snapshot
func (s *PostgresStore) SaveSample(ctx context.Context, sample *models.LoadSample) error {
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	if sample.SampledAt.IsZero() {
		sample.SampledAt = time.Now()
	}

	query := `
		INSERT INTO load_samples (
			id, node_id, local_level, remote_level, cluster_level,
			load_factor, load_fee, sampled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		sample.ID, sample.NodeID, sample.Local, sample.Remote, sample.Cluster,
		sample.LoadFactor, int64(sample.LoadFee), sample.SampledAt,
	)

	return err
}

// SaveEvent persists one raise/lower transition
func (s *PostgresStore) SaveEvent(ctx context.Context, event *models.LevelEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	query := `
		INSERT INTO level_events (
			id, node_id, direction, from_level, to_level, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.NodeID, event.Direction,
		event.FromLevel, event.ToLevel, event.OccurredAt,
	)

	return err
}

// RecentSamples returns the newest samples for a node
func (s *PostgresStore) RecentSamples(ctx context.Context, nodeID string, limit int) ([]*models.LoadSample, error) {
	query := `
		SELECT id, node_id, local_level, remote_level, cluster_level,
			load_factor, load_fee, sampled_at
		FROM load_samples
		WHERE node_id = $1
		ORDER BY sampled_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.LoadSample
	for rows.Next() {
		var sample models.LoadSample
		var loadFee int64
		if err := rows.Scan(
			&sample.ID, &sample.NodeID, &sample.Local, &sample.Remote,
			&sample.Cluster, &sample.LoadFactor, &loadFee, &sample.SampledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample.LoadFee = uint64(loadFee)
		samples = append(samples, &sample)
	}

	return samples, rows.Err()
}

// RecentEvents returns the newest level transitions for a node
func (s *PostgresStore) RecentEvents(ctx context.Context, nodeID string, limit int) ([]*models.LevelEvent, error) {
	query := `
		SELECT id, node_id, direction, from_level, to_level, occurred_at
		FROM level_events
		WHERE node_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.LevelEvent
	for rows.Next() {
		var event models.LevelEvent
		if err := rows.Scan(
			&event.ID, &event.NodeID, &event.Direction,
			&event.FromLevel, &event.ToLevel, &event.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
