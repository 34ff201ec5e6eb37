package history

// This file contains the run history store: saving, loading and resolving
// recorded gatherbench executions.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/perfgo/gatherbench/model"
)

// FileName is the metadata file inside every run directory.
const FileName = "run.json"

type Entry struct {
	History  model.History
	FullPath string
}

// Dir returns the directory holding the run directories below root.
func Dir(root string) string {
	return filepath.Join(root, "history")
}

// RunDir returns <root>/history/<timestamp>-<short id> for h.
func RunDir(root string, h *model.History) string {
	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := fmt.Sprintf("%s-%s", h.Timestamp.Format("20060102-150405"), shortID)
	return filepath.Join(Dir(root), name)
}

// Save writes h as run.json into runDir.
func Save(runDir string, h *model.History) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// LoadEntries loads all history entries below root, newest first. A
// missing root simply has no entries.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(Dir(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		historyPath := filepath.Join(path, FileName)
		if _, err := os.Stat(historyPath); err != nil {
			return nil
		}
		h, err := parseHistoryJSON(historyPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", historyPath).Msg("Failed to parse run.json")
			return nil
		}
		entries = append(entries, Entry{History: h, FullPath: path})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].History.Timestamp.After(entries[j].History.Timestamp)
	})
	return entries, nil
}

// Resolve finds an entry in newest first entries: 0 is the last run, -1
// the one before and so on; anything else is matched as a hex ID prefix.
func Resolve(entries []Entry, arg string) (*Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no history entries found")
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d history entries)", arg, len(entries))
		}
		return &entries[index], nil
	}

	hexID := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].History.ID), hexID) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no history entry found matching ID: %s", arg)
}

func parseHistoryJSON(historyPath string) (model.History, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return model.History{}, err
	}

	var h model.History
	if err := json.Unmarshal(data, &h); err != nil {
		return model.History{}, err
	}
	return h, nil
}
