// Package results contains the sinks a sweep writes its measurements to:
// the per core count .dat files, a Prometheus textfile and the summary
// printed after the sweep.
package results

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perfgo/gatherbench/bench"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/status"
)

// DatSink writes one file per core count, <dir>/<label>_<cores>_cores.dat,
// with one line per stride:
//
//	stride stride*8 mis(v0) gbps(v0) mis(v1) gbps(v1) ...
type DatSink struct {
	dir        string
	label      string
	coreCounts []int
}

func NewDatSink(dir, label string, maxCores int) *DatSink {
	return &DatSink{
		dir:        dir,
		label:      label,
		coreCounts: bench.CoreCounts(maxCores),
	}
}

// Filename returns the file holding the measurements for cores.
func (s *DatSink) Filename(cores int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d_cores.dat", s.label, cores))
}

// Files returns every file the sink writes to.
func (s *DatSink) Files() []string {
	files := make([]string, 0, len(s.coreCounts))
	for _, cores := range s.coreCounts {
		files = append(files, s.Filename(cores))
	}
	return files
}

// WriteStride appends one line to each file, truncating them first when
// clean is set.
func (s *DatSink) WriteStride(strideLog2 int, tables []model.Table, clean bool) error {
	stride := 1 << strideLog2
	for _, cores := range s.coreCounts {
		if err := s.writeLine(s.Filename(cores), stride, cores, tables, clean); err != nil {
			return err
		}
	}
	return nil
}

func (s *DatSink) writeLine(name string, stride, cores int, tables []model.Table, clean bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if clean {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", status.ErrResultFileNotOpened, err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d", stride, stride*8)
	for _, table := range tables {
		m, _ := table.Get(cores)
		fmt.Fprintf(w, " %.6g %.6g", m.ItemsPerSecMillions, m.ThroughputGBps)
	}
	fmt.Fprintln(w)

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return f.Close()
}
