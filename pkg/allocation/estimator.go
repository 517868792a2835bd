package allocation

import (
	"fmt"
	"math"
	"sort"
)

// DefaultResolution leaves values and times undiscretized beyond rounding up
// to the next integer.
const DefaultResolution = 1.0

// Estimator collects (peak usage, duration) data points of a resource and
// computes first allocations from them.
//
// Data points are discretized into a histogram of value buckets, each holding
// a histogram of time buckets. A bucket is the observation rounded up to the
// next multiple of the estimator's resolution.
//
// An Estimator is not safe for concurrent use.
type Estimator struct {
	name            string
	valueResolution float64
	timeResolution  float64

	maximum float64
	values  []float64
	times   []float64

	histogram map[float64]map[float64]int
}

// New creates an empty estimator. Both resolutions must be positive.
func New(name string, valueResolution, timeResolution float64) (*Estimator, error) {
	if !isPositive(valueResolution) {
		return nil, fmt.Errorf("%w: value resolution must be positive, got %g", ErrInvalidArgument, valueResolution)
	}
	if !isPositive(timeResolution) {
		return nil, fmt.Errorf("%w: time resolution must be positive, got %g", ErrInvalidArgument, timeResolution)
	}

	return &Estimator{
		name:            name,
		valueResolution: valueResolution,
		timeResolution:  timeResolution,
		histogram:       make(map[float64]map[float64]int),
	}, nil
}

// Name returns the label describing this data set.
func (e *Estimator) Name() string {
	return e.name
}

// ValueResolution returns the width of the value buckets.
func (e *Estimator) ValueResolution() float64 {
	return e.valueResolution
}

// TimeResolution returns the width of the time buckets.
func (e *Estimator) TimeResolution() float64 {
	return e.timeResolution
}

// Count returns the number of data points added.
func (e *Estimator) Count() int {
	return len(e.values)
}

// MaximumSeen returns the largest value bucket added so far.
func (e *Estimator) MaximumSeen() (float64, error) {
	if e.Count() == 0 {
		return 0, ErrEmptyDataset
	}
	return e.maximum, nil
}

// AddDataPoint records the peak usage of a job and its duration. Units must be
// consistent across data points. It returns how many data points share the
// same value and time buckets, this one included.
func (e *Estimator) AddDataPoint(value, time float64) (int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("%w: value must be a non-negative number, got %g", ErrInvalidArgument, value)
	}
	if !isPositive(time) {
		return 0, fmt.Errorf("%w: time must be positive, got %g", ErrInvalidArgument, time)
	}

	valueBucket := bucket(value, e.valueResolution)
	timeBucket := bucket(time, e.timeResolution)

	if e.Count() == 0 || e.maximum < valueBucket {
		e.maximum = valueBucket
	}

	e.values = append(e.values, value)
	e.times = append(e.times, time)

	times, ok := e.histogram[valueBucket]
	if !ok {
		times = make(map[float64]int)
		e.histogram[valueBucket] = times
	}
	times[timeBucket]++

	return times[timeBucket], nil
}

// Usage returns the resource-time consumed by all data points, i.e. the sum
// of value*time. It is zero when no data has been added.
func (e *Estimator) Usage() float64 {
	usage := 0.0
	for i, v := range e.values {
		usage += v * e.times[i]
	}
	return usage
}

// Waste returns the resource-time that would be wasted if every job ran
// under allocation. Jobs above the allocation are charged for the failed
// attempt plus a retry at the maximum seen.
func (e *Estimator) Waste(allocation float64) (float64, error) {
	if err := e.checkAllocation(allocation); err != nil {
		return 0, err
	}

	waste := 0.0
	for i, v := range e.values {
		t := e.times[i]
		if v <= allocation {
			waste += t * (allocation - v)
		} else {
			waste += t * (allocation + e.maximum - v)
		}
	}
	return waste, nil
}

// WastePercentage returns waste as a percentage of waste plus usage.
// ErrDegenerateRatio is unreachable while Waste requires a positive
// allocation and data points have positive times, since every job then adds
// at least allocation*time to the denominator. The check stays as a guard.
func (e *Estimator) WastePercentage(allocation float64) (float64, error) {
	waste, err := e.Waste(allocation)
	if err != nil {
		return 0, err
	}
	usage := e.Usage()

	if waste+usage == 0 {
		return 0, ErrDegenerateRatio
	}
	return (100.0 * waste) / (waste + usage), nil
}

// Throughput returns the tasks completed per unit of time by a single node
// of capacity MaximumSeen if every job requested allocation. Jobs that fit
// count as MaximumSeen/allocation tasks; jobs that do not fit are retried at
// full capacity and take twice their time.
func (e *Estimator) Throughput(allocation float64) (float64, error) {
	if err := e.checkAllocation(allocation); err != nil {
		return 0, err
	}

	tasks := 0.0
	totalTime := 0.0
	for i, v := range e.values {
		t := e.times[i]
		if v <= allocation {
			tasks += e.maximum / allocation
			totalTime += t
		} else {
			tasks++
			totalTime += 2 * t
		}
	}
	return tasks / totalTime, nil
}

// Retries returns how many data points exceed allocation.
func (e *Estimator) Retries(allocation float64) int {
	retries := 0
	for _, v := range e.values {
		if v > allocation {
			retries++
		}
	}
	return retries
}

// FirstAllocation computes the recommended allocation under mode.
//
// When jobs peak at zero, ModeWaste may return the zero bucket, which Waste,
// WastePercentage and Throughput then reject with ErrInvalidArgument.
// ModeThroughput skips the zero bucket unless it is the only one.
func (e *Estimator) FirstAllocation(mode Mode) (float64, error) {
	if e.Count() == 0 {
		return 0, ErrEmptyDataset
	}

	switch mode {
	case ModeFixed:
		return e.maximum, nil
	case ModeThroughput:
		return e.firstAllocationByThroughput(), nil
	case ModeWaste:
		return e.firstAllocationByWaste(), nil
	default:
		return 0, fmt.Errorf("%w %s", ErrUnsupportedMode, mode)
	}
}

// Buckets returns the distinct value buckets seen, largest first.
func (e *Estimator) Buckets() []float64 {
	buckets := make([]float64, 0, len(e.histogram))
	for v := range e.histogram {
		buckets = append(buckets, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(buckets)))
	return buckets
}

// CountOfValue returns the number of data points in a value bucket.
func (e *Estimator) CountOfValue(valueBucket float64) int {
	count := 0
	for _, n := range e.histogram[valueBucket] {
		count += n
	}
	return count
}

// AccumTimesPerValue returns the total bucketed time of the data points in a
// value bucket.
func (e *Estimator) AccumTimesPerValue(valueBucket float64) float64 {
	total := 0.0
	for t, n := range e.histogram[valueBucket] {
		total += float64(n) * t
	}
	return total
}

// Histogram returns a copy of the value bucket -> time bucket -> count map.
func (e *Estimator) Histogram() map[float64]map[float64]int {
	out := make(map[float64]map[float64]int, len(e.histogram))
	for v, times := range e.histogram {
		inner := make(map[float64]int, len(times))
		for t, n := range times {
			inner[t] = n
		}
		out[v] = inner
	}
	return out
}

// Values returns a copy of the raw values in insertion order.
func (e *Estimator) Values() []float64 {
	return append([]float64(nil), e.values...)
}

// Times returns a copy of the raw times in insertion order.
func (e *Estimator) Times() []float64 {
	return append([]float64(nil), e.times...)
}

func (e *Estimator) checkAllocation(allocation float64) error {
	if !isPositive(allocation) {
		return fmt.Errorf("%w: allocation must be positive, got %g", ErrInvalidArgument, allocation)
	}
	if e.Count() == 0 {
		return ErrEmptyDataset
	}
	return nil
}

// bucket rounds x up to the next multiple of resolution.
func bucket(x, resolution float64) float64 {
	return math.Ceil(x/resolution) * resolution
}

func isPositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
