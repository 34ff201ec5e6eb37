package perf

// stat.go contains utilities for building perf stat commands.

import (
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/urfave/cli/v2"
)

// StatOptions contains options for perf stat command.
type StatOptions struct {
	Events []string // Events to measure
	Detail bool     // Add detailed statistics (-d flag)
	Output string   // File perf writes its statistics to (-o), stderr if empty
	Binary string   // Binary to execute
	Args   []string // Arguments for the binary
}

// BuildStatArgs builds the perf stat arguments, without the perf binary.
func BuildStatArgs(opts StatOptions) []string {
	args := []string{"stat"}

	if opts.Detail {
		args = append(args, "-d")
	}

	for _, event := range opts.Events {
		if event = strings.TrimSpace(event); event != "" {
			args = append(args, "-e", event)
		}
	}

	if opts.Output != "" {
		args = append(args, "-o", opts.Output)
	}

	if opts.Binary != "" {
		args = append(args, "--", opts.Binary)
		args = append(args, opts.Args...)
	}

	return args
}

// BuildStatCommand returns the shell-quoted perf stat command line.
func BuildStatCommand(opts StatOptions) string {
	return shellescape.QuoteCommand(append([]string{"perf"}, BuildStatArgs(opts)...))
}

// StatEventFlag returns the event flag for perf stat (multiple events).
func StatEventFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "event",
		Aliases: []string{"e"},
		Usage:   "Event to measure (can be specified multiple times)",
	}
}

// StatDetailFlag returns the detail flag for perf stat.
func StatDetailFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "detail",
		Usage: "Add detailed statistics (-d flag to perf)",
		Value: true,
	}
}
