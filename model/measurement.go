package model

// Measurement is the outcome of one (variant, stride, core count) point.
type Measurement struct {
	// Number of workers
	Cores int `json:"cores"`
	// Sum of all worker results, to be compared with the scalar baseline
	Result uint64 `json:"result"`
	// Averaged duration in nanoseconds
	DurationNS float64 `json:"duration_ns"`
	// Throughput in GB/s (GB as 2^30 bytes)
	ThroughputGBps float64 `json:"throughput_gbps"`
	// Millions of items per second
	ItemsPerSecMillions float64 `json:"items_per_sec_millions"`
}

// Table holds the measurements of one variant at one stride, in ascending
// core count order.
type Table struct {
	Variant      string        `json:"variant"`
	Stride       int           `json:"stride"`
	Measurements []Measurement `json:"measurements"`
}

// Get returns the measurement for the given core count.
func (t Table) Get(cores int) (Measurement, bool) {
	for _, m := range t.Measurements {
		if m.Cores == cores {
			return m, true
		}
	}
	return Measurement{}, false
}

// CoreCounts returns the measured core counts in order.
func (t Table) CoreCounts() []int {
	counts := make([]int, len(t.Measurements))
	for i, m := range t.Measurements {
		counts[i] = m.Cores
	}
	return counts
}
