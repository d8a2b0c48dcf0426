//go:build pcap
// +build pcap

// Package main analyses a packet capture of the pose stream and reports
// inter-arrival statistics. Frames leave the headset at a fixed rate, so
// gaps in the capture timeline show where the network stalled.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"gonum.org/v1/gonum/stat"
)

// Config holds configuration for the capture analysis.
type Config struct {
	PCAPFile   string
	Filter     string
	GapMs      float64
	OutputJSON string
}

// LatencyReport holds the computed capture statistics.
type LatencyReport struct {
	PCAPFile        string  `json:"pcap_file"`
	Filter          string  `json:"filter"`
	PacketCount     int     `json:"packet_count"`
	TotalBytes      int64   `json:"total_bytes"`
	DurationSecs    float64 `json:"duration_secs"`
	PacketsPerSec   float64 `json:"packets_per_sec"`
	KBPerSec        float64 `json:"kb_per_sec"`
	MeanIntervalMs  float64 `json:"mean_interval_ms"`
	StdDevMs        float64 `json:"stddev_interval_ms"`
	P50IntervalMs   float64 `json:"p50_interval_ms"`
	P95IntervalMs   float64 `json:"p95_interval_ms"`
	P99IntervalMs   float64 `json:"p99_interval_ms"`
	MaxIntervalMs   float64 `json:"max_interval_ms"`
	GapThresholdMs  float64 `json:"gap_threshold_ms"`
	GapCount        int     `json:"gap_count"`
	LongestGapMs    float64 `json:"longest_gap_ms"`
	LongestGapAtSec float64 `json:"longest_gap_at_sec"`
}

func main() {
	cfg := parseFlags()

	if cfg.PCAPFile == "" {
		log.Fatal("PCAP file is required")
	}
	if _, err := os.Stat(cfg.PCAPFile); os.IsNotExist(err) {
		log.Fatalf("PCAP file not found: %s", cfg.PCAPFile)
	}

	timestamps, totalBytes, err := readCapture(cfg.PCAPFile, cfg.Filter)
	if err != nil {
		log.Fatalf("Capture read failed: %v", err)
	}
	if len(timestamps) == 0 {
		log.Fatalf("No packets matched filter %q", cfg.Filter)
	}

	report := computeLatency(timestamps, totalBytes, cfg.GapMs)
	report.PCAPFile = cfg.PCAPFile
	report.Filter = cfg.Filter

	printReport(report)

	if cfg.OutputJSON != "" {
		if err := exportJSON(report, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.PCAPFile, "pcap", "", "Path to PCAP file to analyse")
	flag.StringVar(&cfg.Filter, "filter", "tcp port 50051", "BPF filter for the pose stream")
	flag.Float64Var(&cfg.GapMs, "gap-ms", 50, "Inter-arrival gap to count as a stall (ms)")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g. latency.json)")

	flag.Parse()

	return cfg
}

// readCapture returns the capture timestamp of every packet matching the
// filter, plus the total wire bytes.
func readCapture(pcapFile, filter string) ([]time.Time, int64, error) {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	if err := handle.SetBPFFilter(filter); err != nil {
		return nil, 0, fmt.Errorf("failed to set BPF filter %q: %w", filter, err)
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	var timestamps []time.Time
	var totalBytes int64
	for packet := range packetSource.Packets() {
		meta := packet.Metadata()
		timestamps = append(timestamps, meta.Timestamp)
		totalBytes += int64(meta.Length)
	}

	return timestamps, totalBytes, nil
}

// computeLatency reduces the capture timeline to its arrival statistics.
func computeLatency(timestamps []time.Time, totalBytes int64, gapMs float64) *LatencyReport {
	report := &LatencyReport{
		PacketCount:    len(timestamps),
		TotalBytes:     totalBytes,
		GapThresholdMs: gapMs,
	}

	if len(timestamps) < 2 {
		return report
	}

	t0 := timestamps[0]
	report.DurationSecs = timestamps[len(timestamps)-1].Sub(t0).Seconds()

	intervals := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		ms := timestamps[i].Sub(timestamps[i-1]).Seconds() * 1000
		intervals = append(intervals, ms)

		if ms > report.MaxIntervalMs {
			report.MaxIntervalMs = ms
		}
		if ms > gapMs {
			report.GapCount++
			if ms > report.LongestGapMs {
				report.LongestGapMs = ms
				report.LongestGapAtSec = timestamps[i-1].Sub(t0).Seconds()
			}
		}
	}

	report.MeanIntervalMs = stat.Mean(intervals, nil)
	report.StdDevMs = stat.StdDev(intervals, nil)

	sort.Float64s(intervals)
	report.P50IntervalMs = stat.Quantile(0.50, stat.Empirical, intervals, nil)
	report.P95IntervalMs = stat.Quantile(0.95, stat.Empirical, intervals, nil)
	report.P99IntervalMs = stat.Quantile(0.99, stat.Empirical, intervals, nil)

	if report.DurationSecs > 0 {
		report.PacketsPerSec = float64(len(timestamps)-1) / report.DurationSecs
		report.KBPerSec = float64(totalBytes) / 1024 / report.DurationSecs
	}

	return report
}

func printReport(report *LatencyReport) {
	fmt.Println("\n=== Capture Latency Report ===")
	fmt.Printf("PCAP File: %s\n", report.PCAPFile)
	fmt.Printf("Filter: %s\n", report.Filter)
	fmt.Printf("Packets: %d\n", report.PacketCount)
	fmt.Printf("Total Bytes: %d\n", report.TotalBytes)
	fmt.Printf("Duration: %.2fs\n", report.DurationSecs)
	fmt.Printf("Rate: %.1f pkt/s, %.1f KB/s\n", report.PacketsPerSec, report.KBPerSec)

	fmt.Println("\n--- Inter-Arrival ---")
	fmt.Printf("Mean: %.2f ms (±%.2f)\n", report.MeanIntervalMs, report.StdDevMs)
	fmt.Printf("P50/P95/P99: %.2f / %.2f / %.2f ms\n",
		report.P50IntervalMs, report.P95IntervalMs, report.P99IntervalMs)
	fmt.Printf("Max: %.2f ms\n", report.MaxIntervalMs)

	fmt.Println("\n--- Stalls ---")
	fmt.Printf("Gaps over %.0f ms: %d\n", report.GapThresholdMs, report.GapCount)
	if report.GapCount > 0 {
		fmt.Printf("Longest: %.2f ms at t+%.2fs\n", report.LongestGapMs, report.LongestGapAtSec)
	}
}

func exportJSON(report *LatencyReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
