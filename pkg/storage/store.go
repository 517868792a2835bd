package storage

import (
	"context"
	"errors"

	"github.com/opscart/job-sizer/pkg/models"
)

// ErrNotFound is returned when a stored result does not exist.
var ErrNotFound = errors.New("not found")

// Store persists allocation results and the observations they were
// computed from.
type Store interface {
	SaveResult(ctx context.Context, result *models.AllocationResult) error
	GetResult(ctx context.Context, id string) (*models.AllocationResult, error)
	// ListResults returns the newest results of a category first. A limit
	// of zero or less returns every result.
	ListResults(ctx context.Context, category string, limit int) ([]*models.AllocationResult, error)

	SaveObservations(ctx context.Context, observations []models.Observation) error
	// LoadObservations returns the observations of a category, or of every
	// category when category is models.AllCategory.
	LoadObservations(ctx context.Context, category string) ([]models.Observation, error)

	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Type string // memory, postgres
	URL  string
}

// New opens the store described by config.
func New(config Config) (Store, error) {
	switch config.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(config.URL)
	default:
		return nil, errors.New("unknown storage type: " + config.Type)
	}
}
