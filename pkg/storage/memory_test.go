package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

func result(category string, mode allocation.Mode, created time.Time) *models.AllocationResult {
	return &models.AllocationResult{
		Category:   category,
		Resource:   models.ResourceMemory,
		Mode:       mode,
		Allocation: 200,
		Maximum:    400,
		Count:      2,
		CreatedAt:  created,
	}
}

func TestMemoryStoreResults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := result("render", allocation.ModeWaste, base)
	second := result("render", allocation.ModeThroughput, base.Add(time.Hour))
	other := result("etl", allocation.ModeFixed, base)

	for _, r := range []*models.AllocationResult{first, second, other} {
		require.NoError(t, store.SaveResult(ctx, r))
		assert.NotEmpty(t, r.ID)
	}

	got, err := store.GetResult(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// Returned results are copies.
	got.Allocation = 1
	again, err := store.GetResult(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, again.Allocation)

	_, err = store.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.SaveResult(ctx, first), "duplicate IDs are rejected")

	list, err := store.ListResults(ctx, "render", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = store.ListResults(ctx, "render", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, allocation.ModeThroughput, list[0].Mode)

	list, err = store.ListResults(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStoreFillsCreatedAt(t *testing.T) {
	store := NewMemoryStore()
	r := &models.AllocationResult{Category: "a", Resource: models.ResourceCores}
	require.NoError(t, store.SaveResult(context.Background(), r))
	assert.False(t, r.CreatedAt.IsZero())
}

func TestMemoryStoreObservations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	usage := map[models.Resource]float64{models.ResourceMemory: 300}
	observations := []models.Observation{
		{Category: "render", Job: "render-1", WallTime: 60, Usage: usage},
		{Job: "adhoc", WallTime: 5, Usage: map[models.Resource]float64{models.ResourceMemory: 10}},
		{Category: "render", Job: "render-2", WallTime: 90, Usage: map[models.Resource]float64{models.ResourceMemory: 500}},
	}
	require.NoError(t, store.SaveObservations(ctx, observations))

	// Later changes to the caller's map are not visible.
	usage[models.ResourceMemory] = 1

	render, err := store.LoadObservations(ctx, "render")
	require.NoError(t, err)
	require.Len(t, render, 2)
	assert.Equal(t, "render-1", render[0].Job)
	assert.Equal(t, 300.0, render[0].Usage[models.ResourceMemory])
	assert.Equal(t, "render-2", render[1].Job)

	defaults, err := store.LoadObservations(ctx, "default")
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, "adhoc", defaults[0].Job)

	all, err := store.LoadObservations(ctx, models.AllCategory)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStoreClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(ctx))
	assert.Error(t, store.SaveResult(ctx, result("a", allocation.ModeFixed, time.Now())))
	assert.Error(t, store.SaveObservations(ctx, nil))
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.SaveResult(ctx, result("a", allocation.ModeFixed, time.Now())), context.Canceled)
}

func TestNewStore(t *testing.T) {
	store, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = New(Config{Type: "sqlite"})
	assert.Error(t, err)
}
