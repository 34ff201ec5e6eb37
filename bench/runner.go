// Package bench measures one aggregation variant at one stride across the
// core counts 1, 2, 4, ... MaxCores and verifies its results.
package bench

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/perfgo/gatherbench/aggregate"
	"github.com/perfgo/gatherbench/memory"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/pool"
	"github.com/perfgo/gatherbench/status"
)

// Config controls a Runner.
type Config struct {
	// Iterations per core count
	Iterations int
	// MaxCores is the largest power of two core count measured
	MaxCores int
	Policy   DurationPolicy
	Pool     pool.Config
	Logger   zerolog.Logger
}

// Runner measures variants over data of element type T.
type Runner[T memory.Element] struct {
	cfg Config
}

func NewRunner[T memory.Element](cfg Config) *Runner[T] {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.MaxCores < 1 {
		cfg.MaxCores = 1
	}
	return &Runner[T]{cfg: cfg}
}

// CoreCounts returns 1, 2, 4, ... up to and including max.
func CoreCounts(max int) []int {
	var counts []int
	for c := 1; c <= max; c *= 2 {
		counts = append(counts, c)
	}
	return counts
}

// Run measures v over data at stride. The whole core count curve is
// measured before any result is compared with baseline, so the returned
// table is complete even when a *status.ResultIncorrectError is returned.
// A trial failure aborts at once and returns the table measured so far.
func (r *Runner[T]) Run(v aggregate.Variant[T], data []T, stride int, baseline T) (model.Table, error) {
	table := model.Table{Variant: v.Label, Stride: stride}
	logger := r.cfg.Logger.With().Str("variant", v.Label).Int("stride", stride).Logger()

	for _, cores := range CoreCounts(r.cfg.MaxCores) {
		m, err := r.measure(v.Func, data, stride, cores)
		if err != nil {
			return table, fmt.Errorf("%s with %d cores: %w", v.Label, cores, err)
		}
		table.Measurements = append(table.Measurements, m)

		logger.Debug().
			Int("cores", cores).
			Float64("duration_ns", m.DurationNS).
			Float64("gbps", m.ThroughputGBps).
			Float64("mis", m.ItemsPerSecMillions).
			Msg("Measured")
	}

	want := uint64(baseline)
	for _, m := range table.Measurements {
		if m.Result != want {
			logger.Error().
				Uint64("expected", want).
				Uint64("actual", m.Result).
				Int("cores", m.Cores).
				Msg("Result incorrect")
			return table, &status.ResultIncorrectError{Cores: m.Cores, Expected: want, Actual: m.Result}
		}
	}
	return table, nil
}

func (r *Runner[T]) measure(fn aggregate.Func[T], data []T, stride int, cores int) (model.Measurement, error) {
	perIteration := make([]float64, 0, r.cfg.Iterations)
	var combined T
	for i := 0; i < r.cfg.Iterations; i++ {
		results, err := pool.Run(r.cfg.Pool, data, cores, stride, fn)
		if err != nil {
			return model.Measurement{}, err
		}

		workerNS := make([]float64, len(results))
		combined = 0
		for tid, res := range results {
			workerNS[tid] = float64(res.Duration.Nanoseconds())
			combined += res.Value
		}
		perIteration = append(perIteration, r.cfg.Policy.iteration(workerNS))
	}

	duration := stat.Mean(perIteration, nil)
	gbps, mis := Throughput(len(data), memory.ElementSize[T](), duration)
	return model.Measurement{
		Cores:               cores,
		Result:              uint64(combined),
		DurationNS:          duration,
		ThroughputGBps:      gbps,
		ItemsPerSecMillions: mis,
	}, nil
}
