package results

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/status"
)

func table(variant string, stride int, gbps ...float64) model.Table {
	t := model.Table{Variant: variant, Stride: stride}
	for i, g := range gbps {
		t.Measurements = append(t.Measurements, model.Measurement{
			Cores:               1 << i,
			Result:              42,
			DurationNS:          1e6,
			ThroughputGBps:      g,
			ItemsPerSecMillions: g * 100,
		})
	}
	return t
}

func readLines(t *testing.T, name string) []string {
	t.Helper()
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "26_multi_threaded_avx256_64bit_node02_cpus06", Label(26, "avx256", 64, 2, 6))
	assert.Equal(t, "08_multi_threaded_avx512_32bit_node00_cpus01", Label(8, "avx512", 32, 0, 1))
	assert.Contains(t, []string{"avx512", "avx256"}, Vector())
}

func TestDatSinkCleanThenAppend(t *testing.T) {
	dir := t.TempDir()
	sink := NewDatSink(dir, "lbl", 2)
	require.Equal(t, []string{
		filepath.Join(dir, "lbl_1_cores.dat"),
		filepath.Join(dir, "lbl_2_cores.dat"),
	}, sink.Files())

	// left over from an earlier sweep
	for _, name := range sink.Files() {
		require.NoError(t, os.WriteFile(name, []byte("stale\n"), 0o644))
	}

	first := []model.Table{table("scalar", 0, 1, 2), table("gather", 2, 3, 4)}
	require.NoError(t, sink.WriteStride(1, first, true))

	lines := readLines(t, sink.Filename(1))
	assert.Equal(t, []string{"2 16 100 1 300 3"}, lines)
	lines = readLines(t, sink.Filename(2))
	assert.Equal(t, []string{"2 16 200 2 400 4"}, lines)

	second := []model.Table{table("scalar", 0, 1, 2), table("gather", 4, 5, 6)}
	require.NoError(t, sink.WriteStride(2, second, false))

	lines = readLines(t, sink.Filename(1))
	assert.Equal(t, []string{"2 16 100 1 300 3", "4 32 100 1 500 5"}, lines)
	lines = readLines(t, sink.Filename(2))
	assert.Equal(t, []string{"2 16 200 2 400 4", "4 32 200 2 600 6"}, lines)
}

func TestDatSinkMissingDirectory(t *testing.T) {
	sink := NewDatSink(filepath.Join(t.TempDir(), "missing"), "lbl", 1)
	err := sink.WriteStride(1, []model.Table{table("scalar", 0, 1)}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrResultFileNotOpened)
	assert.Equal(t, status.ResultFileNotOpened, status.CodeOf(err))
}

func TestExporter(t *testing.T) {
	e := NewExporter("lbl")
	require.NoError(t, e.WriteStride(1, []model.Table{table("scalar", 0, 1, 2), table("gather", 2, 3)}, true))

	assert.Equal(t, 3, testutil.CollectAndCount(e.throughput))
	assert.InDelta(t, 2.0, testutil.ToFloat64(e.throughput.WithLabelValues("scalar", "0", "2")), 1e-9)
	assert.InDelta(t, 300.0, testutil.ToFloat64(e.items.WithLabelValues("gather", "2", "1")), 1e-9)
	assert.InDelta(t, 1e-3, testutil.ToFloat64(e.duration.WithLabelValues("scalar", "0", "1")), 1e-12)

	require.NoError(t, e.WriteStride(2, []model.Table{table("gather", 4, 5)}, false))
	assert.Equal(t, 4, testutil.CollectAndCount(e.throughput))

	// a clean sweep drops earlier series
	require.NoError(t, e.WriteStride(1, []model.Table{table("gather", 2, 7)}, true))
	assert.Equal(t, 1, testutil.CollectAndCount(e.throughput))

	path := filepath.Join(t.TempDir(), "gatherbench.prom")
	require.NoError(t, e.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gatherbench_throughput_gbps")
	assert.Contains(t, string(data), `label="lbl"`)
}

type failingSink struct{ calls int }

func (f *failingSink) WriteStride(int, []model.Table, bool) error {
	f.calls++
	return status.ErrResultFileNotOpened
}

func TestMulti(t *testing.T) {
	e := NewExporter("lbl")
	failing := &failingSink{}
	after := &failingSink{}
	err := Multi(e, failing, after).WriteStride(1, []model.Table{table("scalar", 0, 1)}, true)
	assert.ErrorIs(t, err, status.ErrResultFileNotOpened)
	assert.Equal(t, 1, failing.calls)
	assert.Zero(t, after.calls)
	assert.Equal(t, 1, testutil.CollectAndCount(e.throughput))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, []model.Table{table("scalar", 0, 1.5, 2.25)}))
	out := buf.String()
	assert.Contains(t, out, "=== scalar (stride 0) ===")
	assert.Contains(t, out, "GB/s")
	assert.Contains(t, out, "1ms")
	assert.Contains(t, out, "2.250")
	assert.Contains(t, out, "225.000")
}
