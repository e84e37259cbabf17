// Package utils holds small helpers shared by the command-line drivers.
package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats accumulates wall-clock time spent in each phase of a
// rotation sweep.
type TimingStats struct {
	TotalTime          time.Duration
	CheckpointLoadTime time.Duration
	DataLoadingTime    time.Duration
	EvaluationTime     time.Duration
}

// PrintTimingStats prints a per-phase breakdown of a sweep over the given
// number of rotation angles. Respects the Verbose flag - does nothing if
// Verbose is false.
func PrintTimingStats(stats *TimingStats, angles int) {
	if !Verbose || stats.TotalTime == 0 {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total sweep time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Angles evaluated: %d\n", angles)
	if angles > 0 {
		fmt.Fprintf(Output, "Average time per angle: %v\n", stats.TotalTime/time.Duration(angles))
	}
	fmt.Fprintln(Output, "\nBreakdown by phase:")
	fmt.Fprintf(Output, "  Checkpoint load: %v (%.1f%%)\n", stats.CheckpointLoadTime, float64(stats.CheckpointLoadTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, float64(stats.DataLoadingTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Evaluation: %v (%.1f%%)\n", stats.EvaluationTime, float64(stats.EvaluationTime)/float64(stats.TotalTime)*100)
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
