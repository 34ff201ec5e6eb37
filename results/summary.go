package results

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/sweep"
)

// Multi fans every stride out to all sinks in order. The first error
// stops the fan-out.
func Multi(sinks ...sweep.Sink) sweep.Sink {
	return multiSink(sinks)
}

type multiSink []sweep.Sink

func (m multiSink) WriteStride(strideLog2 int, tables []model.Table, clean bool) error {
	for _, s := range m {
		if err := s.WriteStride(strideLog2, tables, clean); err != nil {
			return err
		}
	}
	return nil
}

// PrintSummary writes the latest table of every variant.
func PrintSummary(out io.Writer, tables []model.Table) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, table := range tables {
		fmt.Fprintf(w, "\n=== %s (stride %d) ===\n", table.Variant, table.Stride)
		fmt.Fprintln(w, "cores\tresult\tduration\tGB/s\tMIS\t")
		for _, m := range table.Measurements {
			d := time.Duration(m.DurationNS).Round(time.Microsecond)
			fmt.Fprintf(w, "%d\t%d\t%s\t%.3f\t%.3f\t\n",
				m.Cores, m.Result, d, m.ThroughputGBps, m.ItemsPerSecMillions)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
