package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/cli/perf"
	"github.com/perfgo/gatherbench/status"
)

const AppName = "gatherbench"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Measure gather and strided aggregation throughput across cores, strides and NUMA nodes",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "verbose",
					Usage:   "Enable verbose (debug) logging",
					EnvVars: []string{"GATHERBENCH_VERBOSE"},
				},
				&cli.StringFlag{
					Name:    "history-dir",
					Usage:   "Directory run history is recorded to",
					Value:   ".gatherbench",
					EnvVars: []string{"GATHERBENCH_HISTORY_DIR"},
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}

	runFlags := sweepFlags()
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the benchmark sweep",
		ArgsUsage: "DATA_SIZE_LOG2 [NUMA_NODE [CPU_NUMA_NODE]]",
		Action:    app.run,
		Before:    loadConfig(runFlags),
		Flags:     runFlags,
		Description: `Allocates 2^DATA_SIZE_LOG2 values on NUMA_NODE (default 0) and measures
every aggregation variant on workers pinned in or around CPU_NUMA_NODE
(default 0), for core counts 1, 2, 4, ... --max-cores and strides
2^1 ... 2^--max-stride.

The process exits with the status code of the sweep:
  0 Success, 1 NoDataSizeGiven, 2 DataSizeTooLow, 3 ResultFileNotOpened,
  4 NoMemory, 5 TooManyArguments, 6 NotEnoughCpus, 7 ResultIncorrect,
  8 RunningOnWrongCpuNumaNode, 9 UnevenPartition`,
	})

	statFlags := append(sweepFlags(), perf.StatEventFlag(), perf.StatDetailFlag())
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "stat",
		Usage:     "Run the benchmark sweep under perf stat",
		ArgsUsage: "DATA_SIZE_LOG2 [NUMA_NODE [CPU_NUMA_NODE]]",
		Action:    app.stat,
		Before:    loadConfig(statFlags),
		Flags:     statFlags,
	})
	recordFlags := append(sweepFlags(), perf.ProfileEventFlag(), perf.ProfileCountFlag())
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "record",
		Usage:     "Run the benchmark sweep with perf record and generate pprof profile",
		ArgsUsage: "DATA_SIZE_LOG2 [NUMA_NODE [CPU_NUMA_NODE]]",
		Action:    app.record,
		Before:    loadConfig(recordFlags),
		Flags:     recordFlags,
		Description: `Samples the sweep with call graphs and converts the samples into
perf.pb.gz in the run's history directory. "gatherbench view" opens it
with go tool pprof.`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Filter by working directory",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "view",
		Usage:           "View a run from history",
		ArgsUsage:       "[ID|INDEX] [-- PPROF_ARGS...]",
		Action:          app.view,
		SkipFlagParsing: true,
		Description: `View a run from history.

Arguments:
  0           View last run (default)
  -1          View 2nd last run
  -2          View 3rd last run
  <hex-id>    View run matching the hex ID prefix

Runs recorded with "gatherbench record" open their profile in go tool
pprof, any further arguments are passed to it.

Examples:
  gatherbench view           # View last run
  gatherbench view -1        # View 2nd last run
  gatherbench view abc123    # View run with ID starting with abc123
  gatherbench view -top      # Print the top functions of the last profile
  gatherbench view -1 -- -http=:8080`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// ExitCode maps an error returned by Run to the process exit code: the
// exit code of a failed child process, otherwise the status code.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return int(status.CodeOf(err))
}
