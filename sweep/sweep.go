// Package sweep drives the full experiment matrix: every stride exponent
// from MinStrideLog2 to the configured maximum, every variant in declared
// order, every core count measured by the bench runner.
//
// Init -> Allocate -> Generate -> {PerStride -> {PerVariant} -> LogStride}
// -> Finalize, terminating on the first failure.
package sweep

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/perfgo/gatherbench/aggregate"
	"github.com/perfgo/gatherbench/bench"
	"github.com/perfgo/gatherbench/memory"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/status"
)

const (
	MinStrideLog2        = 1
	DefaultMaxStrideLog2 = 15
	// MaxDataSizeLog2 keeps the element count representable and sane.
	MaxDataSizeLog2 = 40
)

// Sink consumes the measurements after each stride.
type Sink interface {
	// WriteStride receives the latest table of every variant, in declared
	// order, once stride exponent strideLog2 is done. clean is set on the
	// first call of a sweep only.
	WriteStride(strideLog2 int, tables []model.Table, clean bool) error
}

// Config describes one sweep.
type Config struct {
	// The buffer holds 2^DataSizeLog2 elements.
	DataSizeLog2  int
	MaxStrideLog2 int
	// DataNode is where the buffer lives, CPUNode where workers run.
	DataNode int
	CPUNode  int
	Seed     uint64
	Bench    bench.Config
	Logger   zerolog.Logger
}

// Allocator provides the shared buffer.
type Allocator[T memory.Element] func(n int, node int) (*memory.Buffer[T], error)

// VariantResult holds every table measured for one variant, in run order.
type VariantResult struct {
	Variant string        `json:"variant"`
	Strided bool          `json:"strided"`
	Tables  []model.Table `json:"tables"`
}

// Report is what a sweep produced, complete or not.
type Report struct {
	Elements int             `json:"elements"`
	Baseline uint64          `json:"baseline"`
	Variants []VariantResult `json:"variants"`
}

// Latest returns the most recent table of each variant that ran.
func (r Report) Latest() []model.Table {
	var tables []model.Table
	for _, v := range r.Variants {
		if len(v.Tables) > 0 {
			tables = append(tables, v.Tables[len(v.Tables)-1])
		}
	}
	return tables
}

// Controller runs sweeps over elements of type T.
type Controller[T memory.Element] struct {
	cfg      Config
	variants []aggregate.Variant[T]
	sink     Sink
	// Allocate defaults to memory.Allocate.
	Allocate Allocator[T]
}

func New[T memory.Element](cfg Config, variants []aggregate.Variant[T], sink Sink) *Controller[T] {
	if cfg.MaxStrideLog2 == 0 {
		cfg.MaxStrideLog2 = DefaultMaxStrideLog2
	}
	cfg.Bench.Pool.Node = cfg.CPUNode
	return &Controller[T]{
		cfg:      cfg,
		variants: variants,
		sink:     sink,
		Allocate: memory.Allocate[T],
	}
}

// Validate checks the configuration without allocating anything.
func (c *Controller[T]) Validate() error {
	cfg := c.cfg
	if cfg.DataSizeLog2 < 0 || !(cfg.MaxStrideLog2+1 < cfg.DataSizeLog2) {
		return fmt.Errorf("%w: data size is 2**%d which does not allow the maximum stride of 2**%d",
			status.ErrDataSizeTooLow, cfg.DataSizeLog2, cfg.MaxStrideLog2)
	}
	if cfg.DataSizeLog2 > MaxDataSizeLog2 {
		return fmt.Errorf("%w: refusing 2**%d elements", status.ErrNoMemory, cfg.DataSizeLog2)
	}
	maxCores := cfg.Bench.MaxCores
	if maxCores < 1 || maxCores&(maxCores-1) != 0 || maxCores > 1<<cfg.DataSizeLog2 {
		return fmt.Errorf("%w: max cores %d must be a power of two dividing 2**%d",
			status.ErrUnevenPartition, maxCores, cfg.DataSizeLog2)
	}
	return nil
}

// Run executes the sweep. The returned report holds everything measured
// before a failure, including the partial or unverified table of the
// failing variant; tables already handed to the sink stay there.
func (c *Controller[T]) Run() (Report, error) {
	cfg := c.cfg
	logger := cfg.Logger
	report := Report{Variants: make([]VariantResult, len(c.variants))}
	for a, v := range c.variants {
		report.Variants[a] = VariantResult{Variant: v.Label, Strided: v.Strided}
	}

	if err := c.Validate(); err != nil {
		return report, err
	}

	n := 1 << cfg.DataSizeLog2
	report.Elements = n
	buf, err := c.Allocate(n, cfg.DataNode)
	if err != nil {
		logger.Error().Err(err).Int("node", cfg.DataNode).Msg("Memory not allocated")
		return report, err
	}
	defer func() {
		if err := buf.Free(); err != nil {
			logger.Warn().Err(err).Msg("Failed to free buffer")
		}
	}()
	if err := buf.BindError(); err != nil {
		logger.Warn().Err(err).Int("node", cfg.DataNode).Msg("Buffer not bound to NUMA node, placement is up to the kernel")
	}
	logger.Info().
		Int("node", cfg.DataNode).
		Int("values", n).
		Int("bytes", buf.Bytes()).
		Msg("Memory allocated")

	memory.Randomize(buf.Data, cfg.Seed)
	baseline := aggregate.Scalar(buf.Data, 0)
	report.Baseline = uint64(baseline)
	logger.Info().
		Uint64("baseline", report.Baseline).
		Strs("variants", aggregate.Labels(c.variants)).
		Msg("Generation done")

	runner := bench.NewRunner[T](cfg.Bench)
	latest := make([]model.Table, len(c.variants))
	first := true
	for e := MinStrideLog2; e <= cfg.MaxStrideLog2; e++ {
		for a, v := range c.variants {
			stride := 1 << e
			if !v.Strided {
				// stride independent, measured once
				if e != MinStrideLog2 {
					continue
				}
				stride = 0
			}

			table, err := runner.Run(v, buf.Data, stride, baseline)
			if err != nil {
				// keep the curve of a variant that measured but verified wrong
				if len(table.Measurements) > 0 {
					report.Variants[a].Tables = append(report.Variants[a].Tables, table)
				}
				logger.Error().Err(err).Str("variant", v.Label).Int("stride", stride).Msg("Variant failed")
				return report, fmt.Errorf("stride 2**%d: %w", e, err)
			}
			report.Variants[a].Tables = append(report.Variants[a].Tables, table)
			latest[a] = table
			logger.Info().Str("variant", v.Label).Int("stride", stride).Msg("Variant done")
		}

		if c.sink != nil {
			tables := make([]model.Table, len(latest))
			copy(tables, latest)
			if err := c.sink.WriteStride(e, tables, first); err != nil {
				return report, fmt.Errorf("stride 2**%d: %w", e, err)
			}
		}
		first = false
	}

	return report, nil
}
