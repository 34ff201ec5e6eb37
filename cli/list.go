package cli

// This file contains the list command for displaying previous runs.

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/gatherbench/history"
)

func (a *App) list(ctx *cli.Context) error {
	filterPath := ctx.String("path")
	limit := ctx.Int("limit")
	root := ctx.String("history-dir")

	// Load all history entries, newest first
	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	// Apply path filter if specified
	var filteredEntries []history.Entry
	for _, entry := range historyEntries {
		if filterPath == "" || strings.Contains(entry.History.WorkDir, filterPath) {
			filteredEntries = append(filteredEntries, entry)
		}
	}

	if len(filteredEntries) == 0 {
		if filterPath != "" {
			fmt.Printf("No history entries found matching path: %s\n", filterPath)
		} else {
			fmt.Println("No history entries found")
			fmt.Printf("Runs are saved to %s/<timestamp>-<id>/\n", history.Dir(root))
		}
		return nil
	}

	// Apply limit
	displayRuns := filteredEntries
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	fmt.Printf("\n=== History (%d total) ===\n\n", len(filteredEntries))

	for _, entry := range displayRuns {
		tr := entry.History
		timestamp := tr.Timestamp.Format("2006-01-02 15:04:05")
		duration := tr.Duration.Round(time.Millisecond)

		indicator := "✓"
		if tr.ExitCode != 0 {
			indicator = "✗"
		}

		// Show short ID (first 8 chars)
		shortID := tr.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%s]  %s  exit=%d", indicator, timestamp, duration, tr.Type, tr.ExitCode)
		if tr.Status != "" && tr.ExitCode != 0 {
			fmt.Printf(" (%s)", tr.Status)
		}
		fmt.Printf("  id=%s\n", shortID)

		if tr.Sweep != nil {
			fmt.Printf("   Sweep: %s, %d iterations, up to %d cores, %s policy\n",
				tr.Sweep.Label, tr.Sweep.Iterations, tr.Sweep.MaxCores, tr.Sweep.DurationPolicy)
		} else if len(tr.Args) > 1 {
			fmt.Printf("   Args: %s\n", strings.Join(tr.Args[1:], " "))
		}
		if tr.WorkDir != "" {
			fmt.Printf("   Path: %s\n", tr.WorkDir)
		}
		if tr.Target != nil && tr.Target.OS != "" {
			fmt.Printf("   Host: %s (%s/%s, %d cpus, %d NUMA nodes)\n",
				tr.Target.Hostname, tr.Target.OS, tr.Target.Arch, tr.Target.LogicalCPUs, tr.Target.NUMANodes)
		}
		if tr.Git != nil && tr.Git.Commit != "" {
			shortCommit := tr.Git.Commit
			if len(shortCommit) > 8 {
				shortCommit = shortCommit[:8]
			}
			fmt.Printf("   Commit: %s", shortCommit)
			if tr.Git.Branch != "" {
				fmt.Printf(" (%s)", tr.Git.Branch)
			}
			fmt.Println()
		}
		for _, artifact := range tr.Artifacts {
			fmt.Printf("   %s: %s (%.1f KB)\n", artifact.Type, artifact.File, float64(artifact.Size)/1024)
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Println("View a run: gatherbench view <ID>")

	return nil
}
