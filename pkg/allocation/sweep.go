package allocation

// sweep holds the per-bucket aggregates shared by the waste and throughput
// objectives. Every slice is indexed like buckets, which is sorted largest
// first.
type sweep struct {
	buckets []float64
	counts  []float64
	times   []float64

	// runningAvg[i] is the average time contributed by jobs with usage
	// larger than buckets[i].
	runningAvg []float64

	// tb is the average time over all jobs.
	tb float64
}

func (e *Estimator) newSweep() *sweep {
	buckets := e.Buckets()
	n := len(buckets)
	count := float64(e.Count())

	s := &sweep{
		buckets:    buckets,
		counts:     make([]float64, n),
		times:      make([]float64, n),
		runningAvg: make([]float64, n),
	}

	for i, v := range buckets {
		s.counts[i] = float64(e.CountOfValue(v))
		s.times[i] = e.AccumTimesPerValue(v)
	}

	for i := 1; i < n; i++ {
		s.runningAvg[i] = s.runningAvg[i-1] + s.times[i-1]/count
	}
	s.tb = s.runningAvg[n-1] + s.times[n-1]/count

	return s
}

// firstAllocationByWaste returns the bucket minimizing
//
//	E(a) = a*tb + am*runningAvg(a)
//
// (Equation 1 in "A Job Sizing Strategy for High-Throughput Scientific
// Workflows"). Ties keep the largest bucket.
func (e *Estimator) firstAllocationByWaste() float64 {
	s := e.newSweep()

	am := s.buckets[0]
	a := am
	ea := a * s.tb

	for i, ai := range s.buckets {
		eai := ai*s.tb + am*s.runningAvg[i]
		if eai < ea {
			ea = eai
			a = ai
		}
	}
	return a
}

// firstAllocationByThroughput returns the bucket maximizing
//
//	E(a) = ((am/a)*(1 - P(X > a)) + P(X > a)) / (tb + runningAvg(a))
//
// (Equation 3 in the same paper). Ties keep the largest bucket.
func (e *Estimator) firstAllocationByThroughput() float64 {
	s := e.newSweep()
	n := len(s.buckets)
	count := float64(e.Count())

	// pa[i] is P(X > buckets[i]). The base case for the smallest bucket is
	// overwritten by the prefix sum whenever there is more than one bucket.
	pa := make([]float64, n)
	pa[n-1] = count
	for i := 1; i < n; i++ {
		pa[i] = s.counts[i-1]/count + pa[i-1]
	}

	am := s.buckets[0]
	a := am
	if am == 0 {
		return a
	}
	ea := ((am/a)*(1-pa[0]) + pa[0]) / s.tb

	for i, ai := range s.buckets {
		// A zero bucket cannot host a job.
		if ai == 0 {
			continue
		}
		pi := pa[i]
		eai := ((am/ai)*(1-pi) + pi) / (s.tb + s.runningAvg[i])
		if eai > ea {
			ea = eai
			a = ai
		}
	}
	return a
}
