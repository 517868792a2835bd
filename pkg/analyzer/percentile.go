package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

// minSamplesForPattern is the fewest values needed to classify a pattern.
const minSamplesForPattern = 10

// Profile describes the distribution of the raw peak values collected by an
// estimator.
func Profile(est *allocation.Estimator) (*models.UsageProfile, error) {
	return CalculateProfile(est.Values())
}

// CalculateProfile computes the average, P50, P90, P95, P99, peak, minimum
// and usage pattern of values.
func CalculateProfile(values []float64) (*models.UsageProfile, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values provided")
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pattern, cv := AnalyzeUsagePattern(sorted)

	return &models.UsageProfile{
		Average:   calculateAverage(sorted),
		P50:       calculatePercentile(sorted, 50),
		P90:       calculatePercentile(sorted, 90),
		P95:       calculatePercentile(sorted, 95),
		P99:       calculatePercentile(sorted, 99),
		Peak:      sorted[len(sorted)-1],
		Min:       sorted[0],
		Pattern:   pattern,
		Variation: cv,
	}, nil
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// CalculateCoefficientOfVariation measures the relative variability
// High CV (>0.5) = spiky workload
// Low CV (<0.2) = steady workload
func CalculateCoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := calculateAverage(values)
	if mean == 0 {
		return 0
	}

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	variance := sumSquaredDiff / float64(len(values))
	return math.Sqrt(variance) / mean
}

// AnalyzeUsagePattern classifies values as steady, moderate, spiky or
// highly-variable from their coefficient of variation.
func AnalyzeUsagePattern(values []float64) (string, float64) {
	if len(values) < minSamplesForPattern {
		return "unknown", 0
	}

	cv := CalculateCoefficientOfVariation(values)

	switch {
	case cv < 0.15:
		return "steady", cv
	case cv < 0.35:
		return "moderate", cv
	case cv < 0.70:
		return "spiky", cv
	default:
		return "highly-variable", cv
	}
}
