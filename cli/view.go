package cli

// This file contains the view command for displaying runs from history.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/history"
	"github.com/perfgo/gatherbench/model"
	"github.com/perfgo/gatherbench/results"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

// parseViewArgs splits the view arguments into the run ID or index and the
// arguments passed on to pprof.
func parseViewArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	if in[0] == "--" {
		return "0", in[1:]
	}

	// "-1" is an index, "-top" or "-http=:8080" a pprof flag
	if len(in[0]) > 1 && in[0][0] == '-' {
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			return "0", in
		}
	}

	return in[0], removeFirstDashDash(in[1:])
}

func (a *App) view(ctx *cli.Context) error {
	arg, pprofArgs := parseViewArgs(ctx.Args().Slice())

	historyEntries, err := history.LoadEntries(a.logger, ctx.String("history-dir"))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	targetEntry, err := history.Resolve(historyEntries, arg)
	if err != nil {
		return err
	}

	return a.displayHistoryEntry(targetEntry, pprofArgs)
}

func (a *App) displayHistoryEntry(entry *history.Entry, pprofArgs []string) error {
	h := entry.History

	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	// Print header
	fmt.Printf("=== Run: %s (%s) ===\n", shortID, h.Type)
	fmt.Printf("Time: %s\n", h.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", h.Duration)
	fmt.Printf("Exit Code: %d", h.ExitCode)
	if h.Status != "" {
		fmt.Printf(" (%s)", h.Status)
	}
	fmt.Println()
	if h.Error != "" {
		fmt.Printf("Error: %s\n", h.Error)
	}
	if h.Command != "" {
		fmt.Printf("Command: %s\n", h.Command)
	}
	if h.WorkDir != "" {
		fmt.Printf("Working Dir: %s\n", h.WorkDir)
	}
	if h.Git != nil && len(h.Git.Commit) >= 8 {
		fmt.Printf("Git Commit: %s", h.Git.Commit[:8])
		if h.Git.Branch != "" {
			fmt.Printf(" (%s)", h.Git.Branch)
		}
		fmt.Println()
	}
	if h.Target != nil {
		fmt.Printf("Host: %s %s/%s, %s, %d cpus, %d NUMA nodes, %s\n",
			h.Target.Hostname, h.Target.OS, h.Target.Arch, h.Target.CPU,
			h.Target.LogicalCPUs, h.Target.NUMANodes, h.Target.Vector)
	}
	if s := h.Sweep; s != nil {
		fmt.Printf("Sweep: 2^%d %d-bit values on node %d, cpus around node %d\n",
			s.DataSizeLog2, s.Bits, s.NUMANode, s.CPUNUMANode)
		fmt.Printf("       %d iterations, up to %d cores, strides up to 2^%d, %s policy, seed %d\n",
			s.Iterations, s.MaxCores, s.MaxStrideLog2, s.DurationPolicy, s.Seed)
	}
	if h.Perf != nil {
		switch h.Type {
		case model.HistoryTypeRecord:
			fmt.Printf("Perf Record: events=%v count=%d\n", h.Perf.Events, h.Perf.Count)
		default:
			fmt.Printf("Perf Stat: events=%v detail=%t\n", h.Perf.Events, h.Perf.Detail)
		}
	}

	if len(h.Tables) > 0 {
		if err := results.PrintSummary(os.Stdout, h.Tables); err != nil {
			return err
		}
	}
	fmt.Println()

	var profileArtifact *model.Artifact
	for i := range h.Artifacts {
		artifact := &h.Artifacts[i]
		switch artifact.Type {
		case model.ArtifactTypePprofProfile:
			profileArtifact = artifact
		case model.ArtifactTypePerfStat:
			if err := displayFile(entry.FullPath, "Perf Stat Output", artifact); err != nil {
				return err
			}
		case model.ArtifactTypeStderr:
			// shown when the run failed without tables
			if len(h.Tables) == 0 {
				if err := displayFile(entry.FullPath, "Output (stderr)", artifact); err != nil {
					return err
				}
			}
		default:
			fmt.Printf("%s: %s (%.1f KB)\n", artifact.Type, artifact.File, float64(artifact.Size)/1024)
		}
	}

	fmt.Printf("History directory: %s\n", entry.FullPath)

	if profileArtifact != nil {
		return a.displayProfile(entry.FullPath, profileArtifact, pprofArgs)
	}
	return nil
}

func (a *App) displayProfile(runDir string, artifact *model.Artifact, pprofArgs []string) error {
	profilePath := artifactPath(runDir, artifact)
	fmt.Printf("Profile: %s (%.1f KB)\n", profilePath, float64(artifact.Size)/1024)

	// Build pprof command with any additional args
	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = runDir

	return cmd.Run()
}

func artifactPath(runDir string, artifact *model.Artifact) string {
	if filepath.IsAbs(artifact.File) {
		return artifact.File
	}
	return filepath.Join(runDir, artifact.File)
}

func displayFile(runDir, title string, artifact *model.Artifact) error {
	path := artifactPath(runDir, artifact)
	fmt.Printf("%s: %s\n", title, path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", artifact.Type, err)
	}
	fmt.Println(string(data))
	return nil
}
