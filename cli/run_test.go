package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/gatherbench/model"
)

func TestAppendArtifactSince(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	stale := filepath.Join(dir, "stale_1_cores.dat")
	require.NoError(t, os.WriteFile(stale, []byte("2 16 1 mis 1 gbps\n"), 0o644))
	old := start.Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "fresh_1_cores.dat")
	require.NoError(t, os.WriteFile(fresh, []byte("2 16 1 mis 1 gbps\n"), 0o644))
	later := start.Add(time.Second)
	require.NoError(t, os.Chtimes(fresh, later, later))

	var artifacts []model.Artifact
	for _, file := range []string{stale, fresh, filepath.Join(dir, "missing.dat")} {
		artifacts = appendArtifactSince(artifacts, model.ArtifactTypeResultFile, file, start)
	}
	require.Len(t, artifacts, 1)
	assert.Equal(t, fresh, artifacts[0].File)
	assert.Equal(t, uint64(18), artifacts[0].Size)

	// without a lower bound any existing file counts
	assert.Len(t, appendArtifact(nil, model.ArtifactTypeResultFile, stale), 1)
}
