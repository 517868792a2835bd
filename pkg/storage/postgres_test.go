package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

// These tests need a scratch database, e.g.
//
//	JOB_SIZER_TEST_DATABASE_URL=postgres://localhost/job_sizer_test?sslmode=disable go test ./pkg/storage/
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("JOB_SIZER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("JOB_SIZER_TEST_DATABASE_URL not set")
	}

	store, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresResults(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()
	category := "pg-test-" + time.Now().Format("150405.000000")

	created := time.Now().UTC().Truncate(time.Millisecond)
	saved := result(category, allocation.ModeWaste, created)
	saved.Error = "empty dataset"
	require.NoError(t, store.SaveResult(ctx, saved))

	got, err := store.GetResult(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Category, got.Category)
	assert.Equal(t, allocation.ModeWaste, got.Mode)
	assert.Equal(t, "empty dataset", got.Error)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))

	newer := result(category, allocation.ModeFixed, created.Add(time.Minute))
	require.NoError(t, store.SaveResult(ctx, newer))

	list, err := store.ListResults(ctx, category, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	_, err = store.GetResult(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresObservations(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()
	category := "pg-obs-" + time.Now().Format("150405.000000")

	require.NoError(t, store.SaveObservations(ctx, []models.Observation{
		{Category: category, Job: "a", WallTime: 10, Usage: map[models.Resource]float64{models.ResourceMemory: 100}},
		{Category: category, Job: "b", WallTime: 20, Usage: map[models.Resource]float64{models.ResourceMemory: 200, models.ResourceCores: 2}},
	}))

	loaded, err := store.LoadObservations(ctx, category)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].Job)
	assert.NotContains(t, loaded[0].Usage, models.ResourceCores)
	assert.Equal(t, 2.0, loaded[1].Usage[models.ResourceCores])
}
