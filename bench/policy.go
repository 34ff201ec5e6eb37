package bench

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DurationPolicy decides how the worker durations of one iteration are
// condensed into the iteration's duration.
type DurationPolicy int

const (
	// MeanOfWorkerMeans averages the workers of an iteration. Beware,
	// averaged over iterations this is an average of averages.
	MeanOfWorkerMeans DurationPolicy = iota
	// MeanOfWorkerMax takes the slowest worker of an iteration.
	MeanOfWorkerMax
)

// ParseDurationPolicy accepts "mean" and "max".
func ParseDurationPolicy(s string) (DurationPolicy, error) {
	switch s {
	case "mean", "":
		return MeanOfWorkerMeans, nil
	case "max":
		return MeanOfWorkerMax, nil
	}
	return 0, fmt.Errorf("unknown duration policy %q (use mean or max)", s)
}

func (p DurationPolicy) String() string {
	if p == MeanOfWorkerMax {
		return "max"
	}
	return "mean"
}

// iteration condenses per-worker durations in nanoseconds.
func (p DurationPolicy) iteration(workerNS []float64) float64 {
	if len(workerNS) == 0 {
		return 0
	}
	if p == MeanOfWorkerMax {
		return floats.Max(workerNS)
	}
	return stat.Mean(workerNS, nil)
}

// Throughput derives GB/s (2^30 bytes) and millions of items per second
// from n elements of elemSize bytes processed in durationNS. Durations
// below one nanosecond are clamped so the rates stay finite.
func Throughput(n int, elemSize int, durationNS float64) (gbps, mis float64) {
	if !(durationNS >= 1) {
		durationNS = 1
	}
	seconds := durationNS * 1e-9
	gb := float64(n) * float64(elemSize) / (1 << 30)
	return gb / seconds, (float64(n) / 1e6) / seconds
}
