package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildStatArgs(t *testing.T) {
	tests := []struct {
		name string
		opts StatOptions
		want []string
	}{
		{
			name: "defaults",
			opts: StatOptions{},
			want: []string{"stat"},
		},
		{
			name: "detail and events",
			opts: StatOptions{Detail: true, Events: []string{" cycles", "", "cache-misses "}},
			want: []string{"stat", "-d", "-e", "cycles", "-e", "cache-misses"},
		},
		{
			name: "binary with output",
			opts: StatOptions{
				Output: "/tmp/run/perf-stat.txt",
				Binary: "/usr/bin/gatherbench",
				Args:   []string{"run", "--no-history", "20"},
			},
			want: []string{"stat", "-o", "/tmp/run/perf-stat.txt", "--", "/usr/bin/gatherbench", "run", "--no-history", "20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildStatArgs(tt.opts))
		})
	}
}

func TestBuildStatCommand(t *testing.T) {
	cmd := BuildStatCommand(StatOptions{
		Events: []string{"cycles"},
		Binary: "/opt/my tools/gatherbench",
		Args:   []string{"run", "20"},
	})
	assert.Equal(t, `perf stat -e cycles -- '/opt/my tools/gatherbench' run 20`, cmd)
}
