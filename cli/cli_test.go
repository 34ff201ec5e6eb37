package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/gatherbench/history"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/status"
)

func TestRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history-root")
	outputDir := filepath.Join(dir, "out")

	app := New()
	err := app.Run([]string{
		AppName, "--history-dir", historyDir,
		"run", "--no-pin", "--iterations=1", "--max-cores=1", "--max-stride=2", "--bits=32",
		"--output-dir", outputDir,
		"--metrics-file", filepath.Join(dir, "gatherbench.prom"),
		"6",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, ExitCode(err))

	entries, err := history.LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	h := entries[0].History
	assert.Equal(t, model.HistoryTypeRun, h.Type)
	assert.Len(t, h.ID, 32)
	assert.Equal(t, 0, h.ExitCode)
	assert.Equal(t, status.Success.String(), h.Status)
	require.NotNil(t, h.Sweep)
	assert.Equal(t, 32, h.Sweep.Bits)
	require.NotNil(t, h.Target)
	assert.Len(t, h.Tables, 4)

	var types []model.ArtifactType
	for _, a := range h.Artifacts {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, model.ArtifactTypeResultFile)
	assert.Contains(t, types, model.ArtifactTypeMetrics)

	data, err := os.ReadFile(filepath.Join(outputDir, h.Sweep.Label+"_1_cores.dat"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2, "one line per stride")
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history-root")

	tests := []struct {
		name string
		args []string
		want status.Code
	}{
		{name: "no data size", args: []string{"run"}, want: status.NoDataSizeGiven},
		{name: "too many arguments", args: []string{"run", "20", "0", "0", "0"}, want: status.TooManyArguments},
		{name: "data size too low", args: []string{"run", "--output-dir", filepath.Join(dir, "out"), "16"}, want: status.DataSizeTooLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Run(append([]string{AppName, "--history-dir", historyDir}, tt.args...))
			require.Error(t, err)
			assert.Equal(t, int(tt.want), ExitCode(err))
		})
	}

	// only the sweep that got past argument parsing is recorded
	entries, err := history.LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int(status.DataSizeTooLow), entries[0].History.ExitCode)
	assert.Equal(t, "DataSizeTooLow", entries[0].History.Status)
	assert.NotEmpty(t, entries[0].History.Error)
}
