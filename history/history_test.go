package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/gatherbench/model"
)

func save(t *testing.T, root string, h *model.History) string {
	t.Helper()
	dir := RunDir(root, h)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, Save(dir, h))
	return dir
}

func TestRunDir(t *testing.T) {
	h := &model.History{
		ID:        "0123456789abcdef",
		Timestamp: time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
	}
	assert.Equal(t, filepath.Join("root", "history", "20250304-050607-01234567"), RunDir("root", h))
}

func TestLoadEntriesMissingRoot(t *testing.T) {
	entries, err := LoadEntries(zerolog.Nop(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadAndResolve(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	save(t, root, &model.History{ID: "aaaa1111", Type: model.HistoryTypeRun, Timestamp: base})
	save(t, root, &model.History{ID: "bbbb2222", Type: model.HistoryTypeStat, Timestamp: base.Add(time.Hour)})
	newest := save(t, root, &model.History{
		ID:        "cccc3333",
		Type:      model.HistoryTypeRun,
		Timestamp: base.Add(2 * time.Hour),
		Tables:    []model.Table{{Variant: "scalar", Measurements: []model.Measurement{{Cores: 1, Result: 7}}}},
	})

	// broken entries are skipped
	broken := filepath.Join(Dir(root), "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, FileName), []byte("{"), 0o644))

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "cccc3333", entries[0].History.ID)
	assert.Equal(t, newest, entries[0].FullPath)
	assert.Equal(t, uint64(7), entries[0].History.Tables[0].Measurements[0].Result)

	tests := []struct {
		arg     string
		wantID  string
		wantErr bool
	}{
		{arg: "0", wantID: "cccc3333"},
		{arg: "-1", wantID: "bbbb2222"},
		{arg: "-2", wantID: "aaaa1111"},
		{arg: "-3", wantErr: true},
		{arg: "1", wantErr: true},
		{arg: "AAAA", wantID: "aaaa1111"},
		{arg: "dddd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			entry, err := Resolve(entries, tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, entry.History.ID)
		})
	}

	_, err = Resolve(nil, "0")
	assert.Error(t, err)
}
