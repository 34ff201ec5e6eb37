package results

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/perfgo/gatherbench/model"
)

const namespace = "gatherbench"

var metricLabels = []string{"variant", "stride", "cores"}

// Exporter keeps the latest measurement of every (variant, stride, cores)
// as gauges on its own registry.
type Exporter struct {
	registry   *prometheus.Registry
	throughput *prometheus.GaugeVec
	items      *prometheus.GaugeVec
	duration   *prometheus.GaugeVec
}

// NewExporter registers the gauges, each carrying the run label.
func NewExporter(label string) *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"label": label}

	return &Exporter{
		registry: reg,
		throughput: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "throughput_gbps",
			Help:        "Aggregation throughput in GB/s (2^30 bytes)",
			ConstLabels: constLabels,
		}, metricLabels),
		items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "items_per_second_millions",
			Help:        "Aggregated items per second in millions",
			ConstLabels: constLabels,
		}, metricLabels),
		duration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "duration_seconds",
			Help:        "Mean duration of one aggregation pass",
			ConstLabels: constLabels,
		}, metricLabels),
	}
}

// Registry returns the registry holding the gauges.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// WriteStride sets the gauges for every measurement in tables.
func (e *Exporter) WriteStride(_ int, tables []model.Table, clean bool) error {
	if clean {
		e.throughput.Reset()
		e.items.Reset()
		e.duration.Reset()
	}
	for _, table := range tables {
		stride := strconv.Itoa(table.Stride)
		for _, m := range table.Measurements {
			labels := []string{table.Variant, stride, strconv.Itoa(m.Cores)}
			e.throughput.WithLabelValues(labels...).Set(m.ThroughputGBps)
			e.items.WithLabelValues(labels...).Set(m.ItemsPerSecMillions)
			e.duration.WithLabelValues(labels...).Set(m.DurationNS * 1e-9)
		}
	}
	return nil
}

// WriteTextfile writes the gauges in the node exporter textfile format.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}
