package cli

// This file contains the sweep flags shared by run and stat, their
// configuration file and environment sources and the positional
// arguments.

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"

	"github.com/perfgo/gatherbench/bench"
	"github.com/perfgo/gatherbench/pool"
	"github.com/perfgo/gatherbench/status"
	"github.com/perfgo/gatherbench/sweep"
)

const configFlag = "config"

func envVar(name string) []string {
	return []string{"GATHERBENCH_" + name}
}

// forwardedFlags are passed on to the run child of stat.
var forwardedFlags = []string{
	"iterations", "max-cores", "max-stride", "bits", "duration-policy",
	"output-dir", "metrics-file", "seed", "poll-interval", "no-pin",
}

func sweepFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Usage:   "YAML file providing defaults for the flags below",
			EnvVars: envVar("CONFIG"),
		},
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "iterations",
			Usage:   "Repetitions per core count",
			Value:   10,
			EnvVars: envVar("ITERATIONS"),
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "max-cores",
			Usage:   "Largest core count measured, a power of two",
			Value:   8,
			EnvVars: envVar("MAX_CORES"),
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "max-stride",
			Usage:   "Largest stride exponent, strides run from 2^1 to 2^max-stride",
			Value:   sweep.DefaultMaxStrideLog2,
			EnvVars: envVar("MAX_STRIDE"),
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "bits",
			Usage:   "Element width, 64 or 32",
			Value:   64,
			EnvVars: envVar("BITS"),
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "duration-policy",
			Usage:   "How worker durations form an iteration duration: mean or max",
			Value:   bench.MeanOfWorkerMeans.String(),
			EnvVars: envVar("DURATION_POLICY"),
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Directory the .dat result files are written to",
			Value:   "./data/gather",
			EnvVars: envVar("OUTPUT_DIR"),
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "metrics-file",
			Usage:   "Write the measurements as a Prometheus textfile",
			EnvVars: envVar("METRICS_FILE"),
		}),
		altsrc.NewUint64Flag(&cli.Uint64Flag{
			Name:    "seed",
			Usage:   "Seed of the generated data",
			Value:   1,
			EnvVars: envVar("SEED"),
		}),
		altsrc.NewDurationFlag(&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "Sleep between checks whether all workers are pinned",
			Value:   pool.DefaultPollInterval,
			EnvVars: envVar("POLL_INTERVAL"),
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:    "no-pin",
			Usage:   "Do not pin workers to their cpus",
			EnvVars: envVar("NO_PIN"),
		}),
		&cli.BoolFlag{
			Name:    "no-history",
			Usage:   "Do not record the run in the history directory",
			EnvVars: envVar("NO_HISTORY"),
		},
	}
}

// loadConfig reads flag values from the --config YAML file, if given.
// Command line and environment take precedence.
func loadConfig(flags []cli.Flag) cli.BeforeFunc {
	load := altsrc.InitInputSourceWithContext(flags, altsrc.NewYamlSourceFromFlagFunc(configFlag))
	return func(ctx *cli.Context) error {
		if ctx.String(configFlag) == "" {
			return nil
		}
		return load(ctx)
	}
}

type sweepOptions struct {
	DataSizeLog2  int
	DataNode      int
	CPUNode       int
	Iterations    int
	MaxCores      int
	MaxStrideLog2 int
	Bits          int
	Policy        bench.DurationPolicy
	OutputDir     string
	MetricsFile   string
	Seed          uint64
	PollInterval  time.Duration
	NoPin         bool
	NoHistory     bool
}

func sweepOptionsFromContext(ctx *cli.Context) (sweepOptions, error) {
	var opts sweepOptions
	var err error

	opts.DataSizeLog2, opts.DataNode, opts.CPUNode, err = parseSweepArgs(ctx.Args().Slice())
	if err != nil {
		return opts, err
	}

	opts.Policy, err = bench.ParseDurationPolicy(ctx.String("duration-policy"))
	if err != nil {
		return opts, err
	}

	opts.Bits = ctx.Int("bits")
	if opts.Bits != 64 && opts.Bits != 32 {
		return opts, fmt.Errorf("invalid --bits %d (use 64 or 32)", opts.Bits)
	}

	opts.Iterations = ctx.Int("iterations")
	opts.MaxCores = ctx.Int("max-cores")
	opts.MaxStrideLog2 = ctx.Int("max-stride")
	if opts.Iterations < 1 {
		return opts, fmt.Errorf("invalid --iterations %d", opts.Iterations)
	}
	if opts.MaxStrideLog2 < sweep.MinStrideLog2 {
		return opts, fmt.Errorf("invalid --max-stride %d", opts.MaxStrideLog2)
	}

	opts.OutputDir = ctx.String("output-dir")
	opts.MetricsFile = ctx.String("metrics-file")
	opts.Seed = ctx.Uint64("seed")
	opts.PollInterval = ctx.Duration("poll-interval")
	opts.NoPin = ctx.Bool("no-pin")
	opts.NoHistory = ctx.Bool("no-history")
	return opts, nil
}

// parseSweepArgs reads DATA_SIZE_LOG2 [NUMA_NODE [CPU_NUMA_NODE]]. Both
// nodes default to 0.
func parseSweepArgs(args []string) (dataSizeLog2, dataNode, cpuNode int, err error) {
	if len(args) < 1 {
		return 0, 0, 0, status.ErrNoDataSizeGiven
	}
	if len(args) > 3 {
		return 0, 0, 0, fmt.Errorf("%w (%d), expected DATA_SIZE_LOG2 [NUMA_NODE [CPU_NUMA_NODE]]", status.ErrTooManyArguments, len(args))
	}

	dataSizeLog2, err = strconv.Atoi(args[0])
	if err != nil || dataSizeLog2 < 0 {
		return 0, 0, 0, fmt.Errorf("%w: invalid data size %q", status.ErrNoDataSizeGiven, args[0])
	}

	nodes := []*int{&dataNode, &cpuNode}
	for i, arg := range args[1:] {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid NUMA node %q", arg)
		}
		*nodes[i] = n
	}
	return dataSizeLog2, dataNode, cpuNode, nil
}

// runArgs rebuilds the run command line equivalent to ctx, with history
// recording left to the caller.
func runArgs(ctx *cli.Context) []string {
	args := []string{"run", "--no-history"}
	for _, name := range forwardedFlags {
		if ctx.IsSet(name) {
			args = append(args, fmt.Sprintf("--%s=%v", name, ctx.Value(name)))
		}
	}
	return append(args, ctx.Args().Slice()...)
}
