// Package simulate generates synthetic peak usage to exercise the allocation
// estimators without real job data.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/opscart/job-sizer/pkg/allocation"
)

// Generator draws integral samples in [low, high). Exponential samples can
// exceed high.
type Generator interface {
	Name() string
	Sample() float64
}

type generator struct {
	name      string
	low, high float64
	draw      func() float64
	scale     bool
}

func (g *generator) Name() string {
	return g.name
}

func (g *generator) Sample() float64 {
	if g.scale {
		return math.Floor((g.high-g.low)*g.draw()) + g.low
	}
	return math.Floor(g.draw())
}

// Beta draws (high-low)*Beta(1.5, 10) + low.
func Beta(low, high float64, src rand.Source) Generator {
	d := distuv.Beta{Alpha: 1.5, Beta: 10, Src: src}
	return &generator{
		name:  fmt.Sprintf("beta(%g,%g)", low, high),
		low:   low,
		high:  high,
		draw:  d.Rand,
		scale: true,
	}
}

// Exponential draws (high-low)*Exp(1.25) + low.
func Exponential(low, high float64, src rand.Source) Generator {
	d := distuv.Exponential{Rate: 1.25, Src: src}
	return &generator{
		name:  fmt.Sprintf("exponential(%g,%g)", low, high),
		low:   low,
		high:  high,
		draw:  d.Rand,
		scale: true,
	}
}

// Triangular draws from a triangular distribution on [low, high] whose mode
// sits a tenth of the way up.
func Triangular(low, high float64, src rand.Source) Generator {
	d := distuv.NewTriangle(low, high, low+0.1*(high-low), src)
	return &generator{
		name: fmt.Sprintf("triangular(%g,%g)", low, high),
		low:  low,
		high: high,
		draw: d.Rand,
	}
}

// Options configures a simulation run. Resolution applies to the sampled
// values and TimeResolution to WallTime.
type Options struct {
	Seed     uint64
	Samples  int
	Min      float64
	Max      float64
	WallTime float64

	Resource       string
	Resolution     float64 // e.g. 50 MB
	TimeResolution float64
}

// DefaultOptions returns ten memory samples in [50, 10000) MB seeded with 42.
func DefaultOptions() Options {
	return Options{
		Seed:           42,
		Samples:        10,
		Min:            50,
		Max:            10000,
		WallTime:       1,
		Resolution:     50,
		TimeResolution: allocation.DefaultResolution,
		Resource:       "memory",
	}
}

// Validate checks the sample count, range and wall time.
func (o Options) Validate() error {
	if o.Samples < 1 {
		return fmt.Errorf("samples must be >= 1, got %d", o.Samples)
	}
	if o.Min < 0 || o.Max <= o.Min {
		return fmt.Errorf("invalid range [%g, %g)", o.Min, o.Max)
	}
	if o.WallTime <= 0 {
		return fmt.Errorf("wall time must be > 0")
	}
	return nil
}

// Generators returns the beta, exponential and triangular generators over
// the range of o, all drawing from one seeded source.
func (o Options) Generators() []Generator {
	src := rand.NewPCG(o.Seed, o.Seed)
	return []Generator{
		Beta(o.Min, o.Max, src),
		Exponential(o.Min, o.Max, src),
		Triangular(o.Min, o.Max, src),
	}
}

// Run fills one estimator per generator with o.Samples jobs of constant wall
// time. The same options always produce the same estimators.
func Run(o Options) ([]*allocation.Estimator, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var estimators []*allocation.Estimator
	for _, g := range o.Generators() {
		est, err := allocation.New(o.Resource+" "+g.Name(), o.Resolution, o.TimeResolution)
		if err != nil {
			return nil, err
		}
		for est.Count() < o.Samples {
			if _, err := est.AddDataPoint(g.Sample(), o.WallTime); err != nil {
				return nil, fmt.Errorf("%s: %w", g.Name(), err)
			}
		}
		estimators = append(estimators, est)
	}
	return estimators, nil
}
