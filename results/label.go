package results

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
)

// Vector returns the widest vector extension of the host as used in run
// labels: avx512 or avx256.
func Vector() string {
	if cpuid.CPU.Supports(cpuid.AVX512F) {
		return "avx512"
	}
	return "avx256"
}

// Label builds the run label used as the result file prefix, e.g.
// 26_multi_threaded_avx512_64bit_node00_cpus01.
func Label(dataSizeLog2 int, vector string, bits int, numaNode, cpuNode int) string {
	return fmt.Sprintf("%02d_multi_threaded_%s_%dbit_node%02d_cpus%02d",
		dataSizeLog2, vector, bits, numaNode, cpuNode)
}
