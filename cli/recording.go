package cli

// This file contains run recording functionality for saving run metadata
// and artifacts to the history directory.

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/history"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/numa"
	"github.com/perfgo/gatherbench/status"
)

type recording struct {
	logger  zerolog.Logger
	history *model.History
	// empty when recording is disabled
	runDir string
	start  time.Time
}

func (a *App) startRecording(ctx *cli.Context, typ model.HistoryType, disabled bool) (*recording, error) {
	start := time.Now()
	id := uuid.New()

	h := &model.History{
		ID:        hex.EncodeToString(id[:]),
		Type:      typ,
		Timestamp: start,
		Args:      os.Args,
		Command:   shellescape.QuoteCommand(os.Args),
	}

	if cwd, err := os.Getwd(); err == nil {
		h.WorkDir = cwd
	}

	// Capture git info (non-fatal if it fails)
	if commit, branch, err := getGitInfo(); err == nil {
		h.Git = &model.Git{
			Commit: commit,
			Branch: branch,
		}
	} else {
		a.logger.Debug().Err(err).Msg("No git information")
	}

	rec := &recording{logger: a.logger, history: h, start: start}
	if disabled {
		return rec, nil
	}

	// Create history directory early so artifacts can be written directly to it
	rec.runDir = history.RunDir(ctx.String("history-dir"), h)
	if err := os.MkdirAll(rec.runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare history directory: %w", err)
	}
	return rec, nil
}

// path returns where an artifact named name is kept, or "" without history.
func (r *recording) path(name string) string {
	if r.runDir == "" {
		return ""
	}
	return filepath.Join(r.runDir, name)
}

// saveOutput writes captured process output into the run directory.
func (r *recording) saveOutput(name string, content []byte, typ model.ArtifactType) {
	if r.runDir == "" || len(content) == 0 {
		return
	}
	if err := os.WriteFile(r.path(name), content, 0o644); err != nil {
		r.logger.Warn().Err(err).Str("file", name).Msg("Failed to save output")
		return
	}
	r.history.Artifacts = append(r.history.Artifacts, model.Artifact{
		Type: typ,
		Size: uint64(len(content)),
		File: name,
	})
}

// finish completes the record with the outcome of the execution and
// writes it. Failing to record is logged, never returned.
func (r *recording) finish(err error) {
	h := r.history
	h.Duration = time.Since(r.start)
	h.ExitCode = ExitCode(err)

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		h.Status = status.CodeOf(err).String()
	}
	if err != nil {
		h.Error = err.Error()
	}

	if r.runDir == "" {
		return
	}
	if err := history.Save(r.runDir, h); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record history")
		return
	}
	r.logger.Debug().Str("dir", r.runDir).Str("id", h.ID).Msg("Recorded run")
}

func getGitInfo() (commit, branch string, err error) {
	output, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git commit: %w", err)
	}
	commit = strings.TrimSpace(string(output))

	output, err = exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git branch: %w", err)
	}
	branch = strings.TrimSpace(string(output))

	return commit, branch, nil
}

func hostTarget(topo numa.Static, vector string) *model.Target {
	t := &model.Target{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		CPU:         cpuid.CPU.BrandName,
		LogicalCPUs: topo.NumCPUs(),
		NUMANodes:   len(topo.Nodes()),
		Vector:      vector,
	}
	if hostname, err := os.Hostname(); err == nil {
		t.Hostname = hostname
	}
	return t
}
