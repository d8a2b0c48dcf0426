//go:build pcap
// +build pcap

package main

import (
	"math"
	"testing"
	"time"
)

// steadyStamps returns n timestamps spaced interval apart, with a single
// longer stall injected after the stallAfter-th packet.
func steadyStamps(n int, interval, stall time.Duration, stallAfter int) []time.Time {
	t := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	stamps := make([]time.Time, n)
	for i := range stamps {
		stamps[i] = t
		t = t.Add(interval)
		if i == stallAfter {
			t = t.Add(stall)
		}
	}
	return stamps
}

func TestComputeLatency(t *testing.T) {
	// 100 packets at 10 ms with one extra 90 ms stall: one 100 ms interval.
	stamps := steadyStamps(100, 10*time.Millisecond, 90*time.Millisecond, 49)

	report := computeLatency(stamps, 100*1500, 50)

	if report.PacketCount != 100 {
		t.Errorf("expected 100 packets, got %d", report.PacketCount)
	}
	if report.GapCount != 1 {
		t.Errorf("expected 1 gap, got %d", report.GapCount)
	}
	if math.Abs(report.LongestGapMs-100) > 1e-6 {
		t.Errorf("expected longest gap 100ms, got %f", report.LongestGapMs)
	}
	if math.Abs(report.MaxIntervalMs-100) > 1e-6 {
		t.Errorf("expected max interval 100ms, got %f", report.MaxIntervalMs)
	}
	if math.Abs(report.P50IntervalMs-10) > 1e-6 {
		t.Errorf("expected p50 10ms, got %f", report.P50IntervalMs)
	}

	// 98 intervals of 10 ms plus one of 100 ms over 99 steps.
	expectedMean := (98*10.0 + 100.0) / 99.0
	if math.Abs(report.MeanIntervalMs-expectedMean) > 1e-6 {
		t.Errorf("expected mean %.3f ms, got %f", expectedMean, report.MeanIntervalMs)
	}

	expectedDuration := (98*0.01 + 0.1)
	if math.Abs(report.DurationSecs-expectedDuration) > 1e-6 {
		t.Errorf("expected duration %.3fs, got %f", expectedDuration, report.DurationSecs)
	}
}

func TestComputeLatencyStallPosition(t *testing.T) {
	stamps := steadyStamps(100, 10*time.Millisecond, 90*time.Millisecond, 49)
	report := computeLatency(stamps, 0, 50)

	// The stall starts after packet 49, 490 ms into the capture.
	if math.Abs(report.LongestGapAtSec-0.49) > 1e-6 {
		t.Errorf("expected stall at t+0.49s, got %f", report.LongestGapAtSec)
	}
}

func TestComputeLatencyShortCapture(t *testing.T) {
	report := computeLatency(nil, 0, 50)
	if report.PacketCount != 0 || report.MeanIntervalMs != 0 {
		t.Errorf("expected zero report for empty capture, got %+v", report)
	}

	one := steadyStamps(1, 10*time.Millisecond, 0, -1)
	report = computeLatency(one, 1500, 50)
	if report.PacketCount != 1 || report.DurationSecs != 0 {
		t.Errorf("expected degenerate report for one packet, got %+v", report)
	}
}

func TestComputeLatencyThroughput(t *testing.T) {
	// 101 packets at exactly 10 ms: packets/s counts the 100 steps over 1s.
	stamps := steadyStamps(101, 10*time.Millisecond, 0, -1)
	report := computeLatency(stamps, 101*1024, 50)

	if math.Abs(report.PacketsPerSec-100) > 1e-6 {
		t.Errorf("expected 100 pkt/s, got %f", report.PacketsPerSec)
	}
	if math.Abs(report.KBPerSec-101) > 1e-6 {
		t.Errorf("expected 101 KB/s, got %f", report.KBPerSec)
	}
	if report.GapCount != 0 {
		t.Errorf("expected no gaps, got %d", report.GapCount)
	}
}
