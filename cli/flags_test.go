package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/bench"
	"github.com/perfgo/gatherbench/status"
)

func TestParseSweepArgs(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		wantSize int
		wantData int
		wantCPU  int
		wantCode status.Code
	}{
		{name: "missing", in: nil, wantCode: status.NoDataSizeGiven},
		{name: "size only", in: []string{"26"}, wantSize: 26},
		{name: "data node", in: []string{"26", "1"}, wantSize: 26, wantData: 1},
		{name: "both nodes", in: []string{"26", "2", "6"}, wantSize: 26, wantData: 2, wantCPU: 6},
		{name: "too many", in: []string{"26", "0", "0", "0"}, wantCode: status.TooManyArguments},
		{name: "not a number", in: []string{"big"}, wantCode: status.NoDataSizeGiven},
		{name: "bad node", in: []string{"26", "x"}, wantCode: status.Failure},
		{name: "negative node", in: []string{"26", "-1"}, wantCode: status.Failure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, data, cpu, err := parseSweepArgs(tt.in)
			if tt.wantCode != status.Success {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, status.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantData, data)
			assert.Equal(t, tt.wantCPU, cpu)
		})
	}
}

// runFlagsApp parses args like the run command does and hands the context
// to fn.
func runFlagsApp(t *testing.T, args []string, fn func(ctx *cli.Context)) {
	t.Helper()
	flags := sweepFlags()
	app := &cli.App{
		Name:   "test",
		Flags:  flags,
		Before: loadConfig(flags),
		Action: func(ctx *cli.Context) error {
			fn(ctx)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
}

func TestSweepOptionsDefaults(t *testing.T) {
	var opts sweepOptions
	runFlagsApp(t, []string{"20"}, func(ctx *cli.Context) {
		var err error
		opts, err = sweepOptionsFromContext(ctx)
		require.NoError(t, err)
	})

	assert.Equal(t, 20, opts.DataSizeLog2)
	assert.Equal(t, 10, opts.Iterations)
	assert.Equal(t, 8, opts.MaxCores)
	assert.Equal(t, 15, opts.MaxStrideLog2)
	assert.Equal(t, 64, opts.Bits)
	assert.Equal(t, bench.MeanOfWorkerMeans, opts.Policy)
	assert.Equal(t, "./data/gather", opts.OutputDir)
	assert.Equal(t, time.Millisecond, opts.PollInterval)
	assert.False(t, opts.NoPin)
}

func TestSweepOptionsFromConfigAndEnv(t *testing.T) {
	config := filepath.Join(t.TempDir(), "gatherbench.yaml")
	require.NoError(t, os.WriteFile(config, []byte("iterations: 4\nbits: 32\nduration-policy: max\nmax-cores: 2\n"), 0o644))
	t.Setenv("GATHERBENCH_MAX_CORES", "4")

	var opts sweepOptions
	runFlagsApp(t, []string{"--config", config, "--iterations=3", "22", "1", "0"}, func(ctx *cli.Context) {
		var err error
		opts, err = sweepOptionsFromContext(ctx)
		require.NoError(t, err)
	})

	// flag beats config, env beats config
	assert.Equal(t, 3, opts.Iterations)
	assert.Equal(t, 4, opts.MaxCores)
	assert.Equal(t, 32, opts.Bits)
	assert.Equal(t, bench.MeanOfWorkerMax, opts.Policy)
	assert.Equal(t, 1, opts.DataNode)
}

func TestSweepOptionsRejectsInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"--bits=16", "20"},
		{"--duration-policy=median", "20"},
		{"--iterations=0", "20"},
		{"--max-stride=0", "20"},
	} {
		runFlagsApp(t, args, func(ctx *cli.Context) {
			_, err := sweepOptionsFromContext(ctx)
			assert.Error(t, err, "%v", args)
		})
	}
}

func TestRunArgs(t *testing.T) {
	var got []string
	runFlagsApp(t, []string{"--iterations=3", "--no-pin", "--poll-interval=2ms", "20", "1"}, func(ctx *cli.Context) {
		got = runArgs(ctx)
	})
	assert.Equal(t, []string{"run", "--no-history", "--iterations=3", "--poll-interval=2ms", "--no-pin=true", "20", "1"}, got)
}
