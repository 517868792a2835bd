package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
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

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

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

const resultColumns = `id, category, resource, mode, allocation, maximum, count, retries,
	waste_percentage, throughput, relative_throughput, waste_cost, error, created_at`

// SaveResult saves an allocation result, assigning an ID and creation time
// when missing.
func (s *PostgresStore) SaveResult(ctx context.Context, result *models.AllocationResult) error {
	fillResult(result)

	query := `INSERT INTO allocation_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var errMsg sql.NullString
	if result.Error != "" {
		errMsg = sql.NullString{String: result.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		result.ID, result.Category, string(result.Resource), result.Mode.String(),
		result.Allocation, result.Maximum, result.Count, result.Retries,
		result.WastePercentage, result.Throughput, result.RelativeThroughput, result.WasteCost,
		errMsg, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", result.ID, err)
	}
	return nil
}

// GetResult retrieves a result by ID
func (s *PostgresStore) GetResult(ctx context.Context, id string) (*models.AllocationResult, error) {
	query := `SELECT ` + resultColumns + ` FROM allocation_results WHERE id = $1`

	result, err := scanResult(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListResults retrieves the results of a category, newest first
func (s *PostgresStore) ListResults(ctx context.Context, category string, limit int) ([]*models.AllocationResult, error) {
	query := `SELECT ` + resultColumns + `
		FROM allocation_results
		WHERE category = $1
		ORDER BY created_at DESC, resource, mode`
	args := []interface{}{category}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.AllocationResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row scanner) (*models.AllocationResult, error) {
	var result models.AllocationResult
	var resource, mode string
	var errMsg sql.NullString

	err := row.Scan(
		&result.ID, &result.Category, &resource, &mode,
		&result.Allocation, &result.Maximum, &result.Count, &result.Retries,
		&result.WastePercentage, &result.Throughput, &result.RelativeThroughput, &result.WasteCost,
		&errMsg, &result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result.Resource = models.Resource(resource)
	if result.Mode, err = allocation.ParseMode(mode); err != nil {
		return nil, fmt.Errorf("result %s: %w", result.ID, err)
	}
	result.Error = errMsg.String

	return &result, nil
}

// SaveObservations stores observations in a single transaction.
func (s *PostgresStore) SaveObservations(ctx context.Context, observations []models.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (
			id, category, namespace, job, wall_time,
			cores, memory_mb, disk_mb, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, obs := range observations {
		var finishedAt sql.NullTime
		if !obs.FinishedAt.IsZero() {
			finishedAt = sql.NullTime{Time: obs.FinishedAt, Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), observationCategory(obs), obs.Namespace, obs.Job, obs.WallTime,
			usageValue(obs, models.ResourceCores),
			usageValue(obs, models.ResourceMemory),
			usageValue(obs, models.ResourceDisk),
			finishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save observation of %s: %w", obs.Job, err)
		}
	}

	return tx.Commit()
}

// LoadObservations retrieves stored observations in insertion order
func (s *PostgresStore) LoadObservations(ctx context.Context, category string) ([]models.Observation, error) {
	query := `
		SELECT category, namespace, job, wall_time, cores, memory_mb, disk_mb, finished_at
		FROM observations`
	var args []interface{}
	if category != models.AllCategory {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []models.Observation
	for rows.Next() {
		var obs models.Observation
		var namespace, job sql.NullString
		var cores, memory, disk sql.NullFloat64
		var finishedAt sql.NullTime

		if err := rows.Scan(&obs.Category, &namespace, &job, &obs.WallTime,
			&cores, &memory, &disk, &finishedAt); err != nil {
			return nil, err
		}

		obs.Namespace = namespace.String
		obs.Job = job.String
		obs.Usage = make(map[models.Resource]float64, 3)
		for resource, value := range map[models.Resource]sql.NullFloat64{
			models.ResourceCores:  cores,
			models.ResourceMemory: memory,
			models.ResourceDisk:   disk,
		} {
			if value.Valid {
				obs.Usage[resource] = value.Float64
			}
		}
		if finishedAt.Valid {
			obs.FinishedAt = finishedAt.Time
		}

		observations = append(observations, obs)
	}

	return observations, rows.Err()
}

func usageValue(obs models.Observation, resource models.Resource) sql.NullFloat64 {
	v, ok := obs.Usage[resource]
	return sql.NullFloat64{Float64: v, Valid: ok}
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
