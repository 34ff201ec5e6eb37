package cli

// This file contains the stat and record commands, re-executing the sweep
// locally under perf stat or perf record.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/cli/perf"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/numa"
	"github.com/perfgo/gatherbench/results"
)

const (
	perfStatFile    = "perf-stat.txt"
	perfDataFile    = "perf.data"
	perfProfileFile = "perf.pb.gz"
)

func (a *App) stat(ctx *cli.Context) error {
	opts, err := sweepOptionsFromContext(ctx)
	if err != nil {
		return err
	}

	rec, err := a.startRecording(ctx, model.HistoryTypeStat, opts.NoHistory)
	if err != nil {
		return err
	}

	err = a.executeLocalStat(ctx, opts, rec)
	rec.finish(err)
	return err
}

func (a *App) record(ctx *cli.Context) error {
	opts, err := sweepOptionsFromContext(ctx)
	if err != nil {
		return err
	}

	rec, err := a.startRecording(ctx, model.HistoryTypeRecord, opts.NoHistory)
	if err != nil {
		return err
	}

	err = a.executeLocalRecord(ctx, opts, rec)
	rec.finish(err)
	return err
}

func (a *App) executeLocalStat(ctx *cli.Context, opts sweepOptions, rec *recording) error {
	binary, err := a.prepareChild(opts, rec)
	if err != nil {
		return err
	}
	h := rec.history

	statOpts := perf.StatOptions{
		Events: ctx.StringSlice("event"),
		Detail: ctx.Bool("detail"),
		Output: rec.path(perfStatFile),
		Binary: binary,
		Args:   childArgs(ctx),
	}
	h.Perf = &model.Perf{
		Events: statOpts.Events,
		Detail: statOpts.Detail,
	}

	a.logger.Info().
		Strs("events", statOpts.Events).
		Bool("detail", statOpts.Detail).
		Str("command", perf.BuildStatCommand(statOpts)).
		Msg("Wrapping sweep with perf stat")

	runErr := a.runPerf(rec, perf.BuildStatArgs(statOpts))

	if statOpts.Output != "" {
		if data, err := os.ReadFile(statOpts.Output); err == nil {
			os.Stderr.Write(data)
			h.Artifacts = append(h.Artifacts, model.Artifact{
				Type: model.ArtifactTypePerfStat,
				Size: uint64(len(data)),
				File: perfStatFile,
			})
		}
	}
	a.registerSweepOutputs(opts, rec)

	return a.childResult("perf stat", runErr)
}

func (a *App) executeLocalRecord(ctx *cli.Context, opts sweepOptions, rec *recording) error {
	binary, err := a.prepareChild(opts, rec)
	if err != nil {
		return err
	}
	h := rec.history

	// without history the data and the profile go to the working directory
	dataPath, profilePath := perfDataFile, perfProfileFile
	if rec.runDir != "" {
		dataPath, profilePath = rec.path(perfDataFile), rec.path(perfProfileFile)
	}

	recordOpts := perf.RecordOptions{
		Event:  ctx.String("event"),
		Count:  ctx.Int("count"),
		Output: dataPath,
		Binary: binary,
		Args:   childArgs(ctx),
	}
	h.Perf = &model.Perf{Count: recordOpts.Count}
	if recordOpts.Event != "" {
		h.Perf.Events = []string{recordOpts.Event}
	}

	logEvent := a.logger.Info().Str("command", perf.BuildRecordCommand(recordOpts))
	if recordOpts.Event != "" {
		logEvent.Str("event", recordOpts.Event)
		if recordOpts.Count > 0 {
			logEvent.Int("count", recordOpts.Count)
		}
	}
	logEvent.Msg("Wrapping sweep with perf record")

	runErr := a.runPerf(rec, perf.BuildRecordArgs(recordOpts))
	a.registerSweepOutputs(opts, rec)

	// a failed sweep still leaves samples worth looking at
	if _, err := os.Stat(dataPath); err == nil {
		if err := perf.ConvertPerfToPprof(a.logger, dataPath, profilePath); err != nil {
			a.logger.Error().Err(err).Msg("Failed to convert performance data to pprof")
			if runErr == nil {
				return err
			}
		} else {
			if rec.runDir != "" {
				h.Artifacts = appendArtifact(h.Artifacts, model.ArtifactTypePprofProfile, profilePath)
				if err := os.Remove(dataPath); err != nil {
					a.logger.Debug().Err(err).Str("file", dataPath).Msg("Failed to remove perf data")
				}
			}
			a.logger.Info().Msgf("View profile with: go tool pprof %s", profilePath)
		}
	}

	return a.childResult("perf record", runErr)
}

// prepareChild locates the gatherbench binary run under perf and fills the
// host and sweep parts of the run record.
func (a *App) prepareChild(opts sweepOptions, rec *recording) (string, error) {
	binary, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate gatherbench binary: %w", err)
	}

	topo, _ := numa.DetectTopology()
	vector := results.Vector()
	rec.history.Target = hostTarget(topo, vector)
	rec.history.Sweep = opts.record(vector)
	return binary, nil
}

// runPerf runs perf with args, echoing and capturing its output.
func (a *App) runPerf(rec *recording, args []string) error {
	cmd := exec.Command("perf", args...)

	// Capture stdout and stderr for history
	var stdoutBuf, stderrBuf bytes.Buffer

	// Create multi-writers to both capture and display output
	cmd.Stdout = io.MultiWriter(os.Stdout, &stdoutBuf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderrBuf)
	runErr := cmd.Run()

	rec.saveOutput("stdout.txt", stdoutBuf.Bytes(), model.ArtifactTypeStdout)
	rec.saveOutput("stderr.txt", stderrBuf.Bytes(), model.ArtifactTypeStderr)
	return runErr
}

// registerSweepOutputs records the result and metrics files the child
// wrote. Files left over from earlier runs are skipped.
func (a *App) registerSweepOutputs(opts sweepOptions, rec *recording) {
	h := rec.history
	dat := results.NewDatSink(opts.OutputDir, h.Sweep.Label, opts.MaxCores)
	for _, file := range dat.Files() {
		h.Artifacts = appendArtifactSince(h.Artifacts, model.ArtifactTypeResultFile, file, rec.start)
	}
	if opts.MetricsFile != "" {
		h.Artifacts = appendArtifactSince(h.Artifacts, model.ArtifactTypeMetrics, opts.MetricsFile, rec.start)
	}
}

func (a *App) childResult(tool string, runErr error) error {
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			a.logger.Info().
				Int("exit_code", exitErr.ExitCode()).
				Msg("Sweep completed with failures")
			return fmt.Errorf("sweep under %s failed: %w", tool, runErr)
		}
		return fmt.Errorf("failed to execute %s: %w", tool, runErr)
	}

	a.logger.Info().Msg("Sweep completed successfully")
	return nil
}

// childArgs returns the arguments of the gatherbench process run by perf.
func childArgs(ctx *cli.Context) []string {
	var args []string
	if ctx.Bool("verbose") {
		args = append(args, "--verbose")
	}
	return append(args, runArgs(ctx)...)
}
