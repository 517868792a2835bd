package analyzer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

func testResolutions() Resolutions {
	return Resolutions{
		Values: map[models.Resource]float64{
			models.ResourceCores:  1,
			models.ResourceMemory: 50,
			models.ResourceDisk:   50,
		},
		Time: 1,
	}
}

func observation(category string, wallTime, cores, memory, disk float64) models.Observation {
	return models.Observation{
		Category: category,
		WallTime: wallTime,
		Usage: map[models.Resource]float64{
			models.ResourceCores:  cores,
			models.ResourceMemory: memory,
			models.ResourceDisk:   disk,
		},
	}
}

func TestNewCategoriesValidation(t *testing.T) {
	_, err := NewCategories(nil, testResolutions())
	assert.Error(t, err)

	res := testResolutions()
	res.Values[models.ResourceMemory] = 0
	_, err = NewCategories(models.DefaultResources(), res)
	assert.ErrorIs(t, err, allocation.ErrInvalidArgument)
}

func TestCategoriesAdd(t *testing.T) {
	c, err := NewCategories(models.DefaultResources(), testResolutions())
	require.NoError(t, err)

	require.NoError(t, c.Add(observation("render", 60, 1, 200, 10)))
	require.NoError(t, c.Add(observation("render", 183, 2, 400, 20)))
	require.NoError(t, c.Add(observation("etl", 30, 4, 1000, 500)))
	require.NoError(t, c.Add(observation("", 30, 1, 10, 10)))

	assert.Equal(t, []string{models.AllCategory, "default", "etl", "render"}, c.Names())
	assert.Equal(t, 4, c.Count())

	render, ok := c.Get("render", models.ResourceMemory)
	require.True(t, ok)
	assert.Equal(t, 2, render.Count())
	maximum, err := render.MaximumSeen()
	require.NoError(t, err)
	assert.Equal(t, 400.0, maximum)

	all, ok := c.Get(models.AllCategory, models.ResourceCores)
	require.True(t, ok)
	assert.Equal(t, 4, all.Count())
	maximum, err = all.MaximumSeen()
	require.NoError(t, err)
	assert.Equal(t, 4.0, maximum)

	_, ok = c.Get("missing", models.ResourceCores)
	assert.False(t, ok)
}

func TestCategoriesRejectsWithoutPartialWrites(t *testing.T) {
	c, err := NewCategories(models.DefaultResources(), testResolutions())
	require.NoError(t, err)

	// Disk is negative: neither memory nor cores may be recorded.
	err = c.Add(observation("bad", 10, 1, 100, -5))
	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrInvalidArgument)

	missing := models.Observation{Category: "bad", WallTime: 1, Usage: map[models.Resource]float64{models.ResourceCores: 1}}
	assert.Error(t, c.Add(missing))

	assert.Error(t, c.Add(observation(models.AllCategory, 1, 1, 1, 1)))

	assert.Equal(t, 0, c.Count())
	assert.Equal(t, []string{models.AllCategory}, c.Names())
}

func TestCategoriesAddAll(t *testing.T) {
	c, err := NewCategories([]models.Resource{models.ResourceMemory}, testResolutions())
	require.NoError(t, err)

	rejected, err := c.AddAll([]models.Observation{
		observation("a", 1, 1, 100, 1),
		observation("a", 0, 1, 100, 1),
		observation("b", 1, 1, 200, 1),
	})
	assert.Equal(t, 1, rejected)
	assert.Error(t, err)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, []models.Resource{models.ResourceMemory}, c.Resources())
}

func TestCategoriesConcurrentAdd(t *testing.T) {
	c, err := NewCategories(models.DefaultResources(), testResolutions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = c.Add(observation(fmt.Sprintf("cat-%d", w%4), 10, 1, float64(100+i), 10))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 400, c.Count())
	assert.Len(t, c.Names(), 5)
	est, ok := c.Get("cat-0", models.ResourceMemory)
	require.True(t, ok)
	assert.Equal(t, 100, est.Count())
}
