package model

import "time"

// HistoryType represents the type of history entry
type HistoryType string

const (
	HistoryTypeRun    HistoryType = "run"
	HistoryTypeStat   HistoryType = "stat"
	HistoryTypeRecord HistoryType = "record"
)

// History represents a single gatherbench execution (run, stat or record)
type History struct {
	// Unique ID for this execution (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Type of execution
	Type HistoryType `json:"type"`
	// Timestamp when the execution started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Shell-quoted command line to reproduce the execution
	Command string `json:"command,omitempty"`
	// Working directory where command was run
	WorkDir string `json:"workdir"`
	// Exit code of the execution, equal to the status code
	ExitCode int `json:"exit_code"`
	// Status name matching ExitCode
	Status string `json:"status,omitempty"`
	// Error message if the execution failed
	Error string `json:"error,omitempty"`
	// Duration of execution
	Duration time.Duration `json:"duration"`
	// Git information
	Git *Git `json:"git,omitempty"`
	// Host the sweep ran on
	Target *Target `json:"target,omitempty"`
	// Sweep parameters
	Sweep *SweepConfig `json:"sweep,omitempty"`
	// Perf options used (if any)
	Perf *Perf `json:"perf,omitempty"`
	// Artifacts generated during this run
	Artifacts []Artifact `json:"artifacts,omitempty"`
	// Final measurement tables, latest table per variant
	Tables []Table `json:"tables,omitempty"`
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of execution
	Commit string `json:"commit,omitempty"`
	// Git branch at time of execution
	Branch string `json:"branch,omitempty"`
}

// Target contains information about the execution environment
type Target struct {
	Hostname string `json:"hostname,omitempty"`
	// Operating system of the execution environment
	OS string `json:"os,omitempty"`
	// CPU architecture of the execution environment
	Arch string `json:"arch,omitempty"`
	// CPU brand string as reported by CPUID
	CPU string `json:"cpu,omitempty"`
	// Number of logical CPUs
	LogicalCPUs int `json:"logical_cpus,omitempty"`
	// Number of NUMA nodes found
	NUMANodes int `json:"numa_nodes,omitempty"`
	// Widest vector extension, avx512 or avx256
	Vector string `json:"vector,omitempty"`
}

// SweepConfig contains the parameters of a sweep
type SweepConfig struct {
	DataSizeLog2   int    `json:"data_size_log2"`
	NUMANode       int    `json:"numa_node"`
	CPUNUMANode    int    `json:"cpu_numa_node"`
	Bits           int    `json:"bits"`
	Iterations     int    `json:"iterations"`
	MaxCores       int    `json:"max_cores"`
	MaxStrideLog2  int    `json:"max_stride_log2"`
	DurationPolicy string `json:"duration_policy"`
	Seed           uint64 `json:"seed"`
	Label          string `json:"label"`
}

// Perf contains perf stat or perf record options that were used
type Perf struct {
	// Events to measure (stat) or the single event recorded (record)
	Events []string `json:"events,omitempty"`
	// Whether detailed statistics were enabled
	Detail bool `json:"detail,omitempty"`
	// Event period sampled by perf record
	Count int `json:"count,omitempty"`
}

// ArtifactType identifies the type of artifact
type ArtifactType uint8

const (
	ArtifactTypeResultFile ArtifactType = iota
	ArtifactTypeMetrics
	ArtifactTypePerfStat
	ArtifactTypeStdout
	ArtifactTypeStderr
	ArtifactTypePprofProfile
)

func (t ArtifactType) String() string {
	switch t {
	case ArtifactTypeResultFile:
		return "results"
	case ArtifactTypeMetrics:
		return "metrics"
	case ArtifactTypePerfStat:
		return "perf-stat"
	case ArtifactTypeStdout:
		return "stdout"
	case ArtifactTypeStderr:
		return "stderr"
	case ArtifactTypePprofProfile:
		return "pprof"
	}
	return "unknown"
}

// Artifact represents a file generated during execution
type Artifact struct {
	Type ArtifactType `json:"type"`
	Size uint64       `json:"size"`
	File string       `json:"file"` // absolute, or relative to run dir
}
