package utils

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestPrintTimingStats(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	Output, Verbose = &buf, true
	defer func() { Output, Verbose = oldOut, oldVerbose }()

	stats := &TimingStats{
		TotalTime:          10 * time.Second,
		CheckpointLoadTime: 1 * time.Second,
		DataLoadingTime:    4 * time.Second,
		EvaluationTime:     5 * time.Second,
	}
	PrintTimingStats(stats, 19)

	out := buf.String()
	for _, want := range []string{"Total sweep time", "Angles evaluated: 19", "Data loading", "50.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTimingStatsQuiet(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	Output, Verbose = &buf, false
	defer func() { Output, Verbose = oldOut, oldVerbose }()

	PrintTimingStats(&TimingStats{TotalTime: time.Second}, 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output when Verbose is off, got %q", buf.String())
	}
}
