package cli

// This file contains the run command executing the benchmark sweep.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/aggregate"
	"github.com/perfgo/gatherbench/bench"
	"github.com/perfgo/gatherbench/memory"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/numa"
	"github.com/perfgo/gatherbench/pool"
	"github.com/perfgo/gatherbench/results"
	"github.com/perfgo/gatherbench/status"
	"github.com/perfgo/gatherbench/sweep"
)

func (a *App) run(ctx *cli.Context) error {
	opts, err := sweepOptionsFromContext(ctx)
	if err != nil {
		return err
	}

	rec, err := a.startRecording(ctx, model.HistoryTypeRun, opts.NoHistory)
	if err != nil {
		return err
	}

	err = a.executeSweep(opts, rec.history)
	rec.finish(err)
	return err
}

func (a *App) executeSweep(opts sweepOptions, h *model.History) error {
	topo, err := numa.DetectTopology()
	if err != nil {
		a.logger.Warn().Err(err).Msg("NUMA topology not detected, assuming a single node")
	}

	vector := results.Vector()
	h.Target = hostTarget(topo, vector)
	h.Sweep = opts.record(vector)
	label := h.Sweep.Label

	a.logger.Info().
		Str("label", label).
		Int("data_size_log2", opts.DataSizeLog2).
		Int("max_stride", opts.MaxStrideLog2).
		Int("cpus", topo.NumCPUs()).
		Ints("nodes", topo.Nodes()).
		Msg("Starting sweep")
	a.logger.Debug().
		Int("node", opts.CPUNode).
		Ints("cpus", topo.CPUsOfNode(opts.CPUNode)).
		Msg("CPUs local to the worker node")

	var pinner numa.Pinner = numa.AffinityPinner{}
	if opts.NoPin {
		pinner = numa.NopPinner{}
	}
	cfg := sweep.Config{
		DataSizeLog2:  opts.DataSizeLog2,
		MaxStrideLog2: opts.MaxStrideLog2,
		DataNode:      opts.DataNode,
		CPUNode:       opts.CPUNode,
		Seed:          opts.Seed,
		Bench: bench.Config{
			Iterations: opts.Iterations,
			MaxCores:   opts.MaxCores,
			Policy:     opts.Policy,
			Pool: pool.Config{
				Topology:     topo,
				Pinner:       pinner,
				PollInterval: opts.PollInterval,
				Logger:       a.logger,
			},
			Logger: a.logger,
		},
		Logger: a.logger,
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", status.ErrResultFileNotOpened, err)
	}
	dat := results.NewDatSink(opts.OutputDir, label, opts.MaxCores)
	exporter := results.NewExporter(label)
	sink := results.Multi(dat, exporter)

	var report sweep.Report
	if opts.Bits == 32 {
		report, err = runSweep[uint32](cfg, sink)
	} else {
		report, err = runSweep[uint64](cfg, sink)
	}

	tables := report.Latest()
	h.Tables = tables
	for _, file := range dat.Files() {
		h.Artifacts = appendArtifact(h.Artifacts, model.ArtifactTypeResultFile, file)
	}

	if opts.MetricsFile != "" {
		if werr := exporter.WriteTextfile(opts.MetricsFile); werr != nil {
			a.logger.Warn().Err(werr).Str("file", opts.MetricsFile).Msg("Failed to write metrics file")
		} else {
			h.Artifacts = appendArtifact(h.Artifacts, model.ArtifactTypeMetrics, opts.MetricsFile)
		}
	}

	if err != nil {
		a.logger.Error().Err(err).Str("status", status.CodeOf(err).String()).Msg("Sweep failed")
		return err
	}

	if err := results.PrintSummary(os.Stdout, tables); err != nil {
		return err
	}
	a.logger.Info().Str("dir", opts.OutputDir).Str("label", label).Msg("Sweep done")
	return nil
}

func (opts sweepOptions) record(vector string) *model.SweepConfig {
	return &model.SweepConfig{
		DataSizeLog2:   opts.DataSizeLog2,
		NUMANode:       opts.DataNode,
		CPUNUMANode:    opts.CPUNode,
		Bits:           opts.Bits,
		Iterations:     opts.Iterations,
		MaxCores:       opts.MaxCores,
		MaxStrideLog2:  opts.MaxStrideLog2,
		DurationPolicy: opts.Policy.String(),
		Seed:           opts.Seed,
		Label:          results.Label(opts.DataSizeLog2, vector, opts.Bits, opts.DataNode, opts.CPUNode),
	}
}

func runSweep[T memory.Element](cfg sweep.Config, sink sweep.Sink) (sweep.Report, error) {
	return sweep.New[T](cfg, aggregate.Variants[T](), sink).Run()
}

// appendArtifact registers file if it exists.
func appendArtifact(artifacts []model.Artifact, typ model.ArtifactType, file string) []model.Artifact {
	return appendArtifactSince(artifacts, typ, file, time.Time{})
}

// appendArtifactSince registers file if it exists and was modified at or
// after since.
func appendArtifactSince(artifacts []model.Artifact, typ model.ArtifactType, file string, since time.Time) []model.Artifact {
	info, err := os.Stat(file)
	if err != nil || info.ModTime().Before(since) {
		return artifacts
	}
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return append(artifacts, model.Artifact{
		Type: typ,
		Size: uint64(info.Size()),
		File: file,
	})
}
