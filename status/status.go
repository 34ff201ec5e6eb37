// Package status defines the error taxonomy of a benchmark sweep and maps
// errors to the process exit codes reported to the caller.
package status

import (
	"errors"
	"fmt"
)

// Code is the numeric status reported as the process exit code.
type Code int

const (
	Success Code = iota
	NoDataSizeGiven
	DataSizeTooLow
	ResultFileNotOpened
	NoMemory
	TooManyArguments
	NotEnoughCPUs
	ResultIncorrect
	RunningOnWrongCPUNUMANode
	UnevenPartition
	// Failure is used for errors that carry no sweep status.
	Failure Code = 255
)

var codeNames = map[Code]string{
	Success:                   "Success",
	NoDataSizeGiven:           "NoDataSizeGiven",
	DataSizeTooLow:            "DataSizeTooLow",
	ResultFileNotOpened:       "ResultFileNotOpened",
	NoMemory:                  "NoMemory",
	TooManyArguments:          "TooManyArguments",
	NotEnoughCPUs:             "NotEnoughCpus",
	ResultIncorrect:           "ResultIncorrect",
	RunningOnWrongCPUNUMANode: "RunningOnWrongCpuNumaNode",
	UnevenPartition:           "UnevenPartition",
	Failure:                   "Failure",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Configuration errors, detected before anything is allocated.
var (
	ErrNoDataSizeGiven  = errors.New("data size as input expected (as log2)")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrDataSizeTooLow   = errors.New("data size too low for the maximum stride")
	ErrUnevenPartition  = errors.New("element count not divisible by core count")
)

// Resource errors, fatal for the current sweep.
var (
	ErrNoMemory                  = errors.New("could not allocate memory")
	ErrNotEnoughCPUs             = errors.New("not enough cpus around the target NUMA node")
	ErrRunningOnWrongCPUNUMANode = errors.New("thread is not running on the requested cpu")
	ErrResultFileNotOpened       = errors.New("result file could not be opened")
)

// ErrResultIncorrect is matched by every *ResultIncorrectError.
var ErrResultIncorrect = errors.New("aggregated result incorrect")

// ResultIncorrectError reports the first core count whose combined result
// differs from the scalar baseline.
type ResultIncorrectError struct {
	Cores    int
	Expected uint64
	Actual   uint64
}

func (e *ResultIncorrectError) Error() string {
	return fmt.Sprintf("the correct result is %d but with %d cores, we got %d instead", e.Expected, e.Cores, e.Actual)
}

func (e *ResultIncorrectError) Is(target error) bool {
	return target == ErrResultIncorrect
}

var sentinels = []struct {
	err  error
	code Code
}{
	{ErrNoDataSizeGiven, NoDataSizeGiven},
	{ErrDataSizeTooLow, DataSizeTooLow},
	{ErrResultFileNotOpened, ResultFileNotOpened},
	{ErrNoMemory, NoMemory},
	{ErrTooManyArguments, TooManyArguments},
	{ErrNotEnoughCPUs, NotEnoughCPUs},
	{ErrResultIncorrect, ResultIncorrect},
	{ErrRunningOnWrongCPUNUMANode, RunningOnWrongCPUNUMANode},
	{ErrUnevenPartition, UnevenPartition},
}

// CodeOf returns the status code carried by err. A nil error is Success,
// an error outside the taxonomy is Failure.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return Failure
}
