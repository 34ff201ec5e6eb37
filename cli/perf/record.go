package perf

// record.go contains utilities for building perf record commands and
// converting the recorded data to pprof profiles.

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/perfscript"
)

// RecordOptions contains options for perf record command.
type RecordOptions struct {
	Event  string   // Event to record
	Count  int      // Event period to sample (e.g., -c 1000000)
	Output string   // Output file path (default: perf.data)
	Binary string   // Binary to execute
	Args   []string // Arguments for the binary
}

// BuildRecordArgs builds the perf record arguments, without the perf binary.
// Call graphs use frame pointers, which Go binaries always carry.
func BuildRecordArgs(opts RecordOptions) []string {
	args := []string{"record", "-g", "--call-graph", "fp"}

	if opts.Event != "" {
		args = append(args, "-e", opts.Event)
		if opts.Count > 0 {
			args = append(args, "-c", strconv.Itoa(opts.Count))
		}
	}

	output := opts.Output
	if output == "" {
		output = "perf.data"
	}
	args = append(args, "-o", output)

	if opts.Binary != "" {
		args = append(args, "--", opts.Binary)
		args = append(args, opts.Args...)
	}
	return args
}

// BuildRecordCommand returns the shell-quoted perf record command line.
func BuildRecordCommand(opts RecordOptions) string {
	return shellescape.QuoteCommand(append([]string{"perf"}, BuildRecordArgs(opts)...))
}

// ProfileEventFlag returns the event flag for perf record (single event).
func ProfileEventFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "event",
		Aliases: []string{"e"},
		Usage:   "Event to record (perf default when empty)",
	}
}

// ProfileCountFlag returns the count flag for perf record (event period).
func ProfileCountFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "count",
		Aliases: []string{"c"},
		Usage:   "Event period to sample (e.g., sample every N events)",
	}
}

// ConvertPerfToPprof runs perf script on perfDataPath and writes the
// resulting pprof profile to outputPath. The script output is streamed
// through a temporary file that is removed afterwards.
func ConvertPerfToPprof(logger zerolog.Logger, perfDataPath, outputPath string) error {
	logger.Info().Str("input", perfDataPath).Str("output", outputPath).Msg("Processing performance data")

	tempFile, err := os.CreateTemp("", "gatherbench-perf-script-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		tempFile.Close()
		os.Remove(tempPath)
	}()

	cmd := exec.Command("perf", "script", "-i", perfDataPath)
	cmd.Stdout = tempFile
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run perf script: %w", err)
	}

	if info, err := tempFile.Stat(); err == nil {
		logger.Debug().Int64("size_bytes", info.Size()).Str("temp_file", tempPath).Msg("Perf script output written")
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek temporary file: %w", err)
	}

	return WriteProfile(logger, tempFile, outputPath)
}

// WriteProfile parses perf script output and writes it as a gzipped pprof
// profile to outputPath.
func WriteProfile(logger zerolog.Logger, scriptOutput io.Reader, outputPath string) error {
	prof, err := perfscript.New().Parse(scriptOutput)
	if err != nil {
		return fmt.Errorf("failed to parse perf script: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	defer f.Close()

	if err := prof.Write(f); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	logger.Info().
		Str("profile", outputPath).
		Int("samples", len(prof.Sample)).
		Int("functions", len(prof.Function)).
		Int("locations", len(prof.Location)).
		Msg("Performance profile created")
	return nil
}
