// Package main provides an offline analysis tool for recorded pose
// sessions. It reads one session's samples from the trace database,
// prints summary statistics, and optionally renders PNG charts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "modernc.org/sqlite"

	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/units"
)

// Config holds configuration for the session analysis.
type Config struct {
	DBPath     string
	SessionID  string
	Limit      int
	OutputDir  string
	OutputJSON string
}

// SessionReport holds the computed statistics for one session.
type SessionReport struct {
	SessionID    string        `json:"session_id"`
	DeviceID     string        `json:"device_id"`
	Notes        string        `json:"notes,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	DurationSecs float64       `json:"duration_secs"`
	SampleCount  int           `json:"sample_count"`
	Timing       TimingStats   `json:"timing"`
	Motion       MotionStats   `json:"motion"`
	Tracking     TrackingStats `json:"tracking"`
	Battery      BatteryStats  `json:"battery"`
}

// TimingStats describes the spacing of frames on the headset clock.
type TimingStats struct {
	MeanIntervalMs   float64 `json:"mean_interval_ms"`
	StdDevIntervalMs float64 `json:"stddev_interval_ms"`
	P50IntervalMs    float64 `json:"p50_interval_ms"`
	P95IntervalMs    float64 `json:"p95_interval_ms"`
	P99IntervalMs    float64 `json:"p99_interval_ms"`
	MaxIntervalMs    float64 `json:"max_interval_ms"`
	EffectiveRateHz  float64 `json:"effective_rate_hz"`
}

// MotionStats describes how far and how fast the headset moved, in
// field-frame meters. Angle ranges are peak-to-peak in degrees.
type MotionStats struct {
	PathLengthM   float64 `json:"path_length_m"`
	AvgSpeedMps   float64 `json:"avg_speed_mps"`
	MaxSpeedMps   float64 `json:"max_speed_mps"`
	MinX          float64 `json:"min_x"`
	MaxX          float64 `json:"max_x"`
	MinY          float64 `json:"min_y"`
	MaxY          float64 `json:"max_y"`
	MinZ          float64 `json:"min_z"`
	MaxZ          float64 `json:"max_z"`
	RollRangeDeg  float64 `json:"roll_range_deg"`
	PitchRangeDeg float64 `json:"pitch_range_deg"`
	YawRangeDeg   float64 `json:"yaw_range_deg"`
}

// TrackingStats describes tracking health over the session.
type TrackingStats struct {
	TrackedPct   float64 `json:"tracked_pct"`
	DropoutCount int     `json:"dropout_count"`
}

// BatteryStats describes battery drain over the session.
type BatteryStats struct {
	StartPercent int32 `json:"start_percent"`
	EndPercent   int32 `json:"end_percent"`
	DrainPercent int32 `json:"drain_percent"`
}

func main() {
	cfg := parseFlags()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	session, err := resolveSession(database, cfg.SessionID)
	if err != nil {
		log.Fatalf("Failed to resolve session: %v", err)
	}

	samples, err := database.SamplesForSession(session.ID, cfg.Limit)
	if err != nil {
		log.Fatalf("Failed to load samples: %v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("Session %s has no samples", session.ID)
	}

	report := buildReport(session, samples)
	printReport(report)

	if cfg.OutputJSON != "" {
		outputPath := cfg.OutputJSON
		if cfg.OutputDir != "" {
			outputPath = filepath.Join(cfg.OutputDir, cfg.OutputJSON)
		}
		if err := exportJSON(report, outputPath); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Report exported to: %s", outputPath)
		}
	}

	if cfg.OutputDir != "" {
		count, err := generatePlots(samples, cfg.OutputDir)
		if err != nil {
			log.Fatalf("Failed to generate plots: %v", err)
		}
		log.Printf("Wrote %d plots to %s", count, cfg.OutputDir)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DBPath, "db", "questrig.db", "Path to the trace database")
	flag.StringVar(&cfg.SessionID, "session", "", "Session ID to analyse (default: most recent)")
	flag.IntVar(&cfg.Limit, "limit", 0, "Maximum samples to load (0 = all)")
	flag.StringVar(&cfg.OutputDir, "output", "", "Output directory for PNG charts (empty = no charts)")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g. report.json)")

	flag.Parse()

	return cfg
}

// resolveSession returns the named session, or the most recent one when
// no ID was given.
func resolveSession(database *db.DB, id string) (*db.Session, error) {
	if id != "" {
		return database.GetSession(id)
	}
	sessions, err := database.ListSessions(1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions recorded")
	}
	return &sessions[0], nil
}

func buildReport(session *db.Session, samples []db.Sample) *SessionReport {
	report := &SessionReport{
		SessionID:   session.ID,
		DeviceID:    session.DeviceID,
		Notes:       session.Notes,
		StartedAt:   session.StartedAt,
		SampleCount: len(samples),
	}
	report.DurationSecs = samples[len(samples)-1].Timestamp - samples[0].Timestamp
	report.Timing = computeTiming(samples, report.DurationSecs)
	report.Motion = computeMotion(samples, report.DurationSecs)
	report.Tracking = computeTracking(samples)
	report.Battery = BatteryStats{
		StartPercent: samples[0].BatteryPercent,
		EndPercent:   samples[len(samples)-1].BatteryPercent,
		DrainPercent: samples[0].BatteryPercent - samples[len(samples)-1].BatteryPercent,
	}
	return report
}

func computeTiming(samples []db.Sample, durationSecs float64) TimingStats {
	if len(samples) < 2 {
		return TimingStats{}
	}

	intervals := make([]float64, 0, len(samples)-1)
	maxMs := 0.0
	for i := 1; i < len(samples); i++ {
		ms := (samples[i].Timestamp - samples[i-1].Timestamp) * 1000
		intervals = append(intervals, ms)
		if ms > maxMs {
			maxMs = ms
		}
	}

	ts := TimingStats{
		MeanIntervalMs:   stat.Mean(intervals, nil),
		StdDevIntervalMs: stat.StdDev(intervals, nil),
		MaxIntervalMs:    maxMs,
	}

	sort.Float64s(intervals)
	ts.P50IntervalMs = stat.Quantile(0.50, stat.Empirical, intervals, nil)
	ts.P95IntervalMs = stat.Quantile(0.95, stat.Empirical, intervals, nil)
	ts.P99IntervalMs = stat.Quantile(0.99, stat.Empirical, intervals, nil)

	if durationSecs > 0 {
		ts.EffectiveRateHz = float64(len(samples)-1) / durationSecs
	}
	return ts
}

func computeMotion(samples []db.Sample, durationSecs float64) MotionStats {
	ms := MotionStats{
		MinX: samples[0].X, MaxX: samples[0].X,
		MinY: samples[0].Y, MaxY: samples[0].Y,
		MinZ: samples[0].Z, MaxZ: samples[0].Z,
	}

	first := samples[0].Pose().Rotation
	minRoll, maxRoll := first.X(), first.X()
	minPitch, maxPitch := first.Y(), first.Y()
	minYaw, maxYaw := first.Z(), first.Z()

	for i, s := range samples {
		ms.MinX = math.Min(ms.MinX, s.X)
		ms.MaxX = math.Max(ms.MaxX, s.X)
		ms.MinY = math.Min(ms.MinY, s.Y)
		ms.MaxY = math.Max(ms.MaxY, s.Y)
		ms.MinZ = math.Min(ms.MinZ, s.Z)
		ms.MaxZ = math.Max(ms.MaxZ, s.Z)

		rot := s.Pose().Rotation
		minRoll = math.Min(minRoll, rot.X())
		maxRoll = math.Max(maxRoll, rot.X())
		minPitch = math.Min(minPitch, rot.Y())
		maxPitch = math.Max(maxPitch, rot.Y())
		minYaw = math.Min(minYaw, rot.Z())
		maxYaw = math.Max(maxYaw, rot.Z())

		if i == 0 {
			continue
		}
		prev := samples[i-1]
		step := math.Sqrt(
			(s.X-prev.X)*(s.X-prev.X) +
				(s.Y-prev.Y)*(s.Y-prev.Y) +
				(s.Z-prev.Z)*(s.Z-prev.Z))
		ms.PathLengthM += step

		if dt := s.Timestamp - prev.Timestamp; dt > 0 {
			if speed := step / dt; speed > ms.MaxSpeedMps {
				ms.MaxSpeedMps = speed
			}
		}
	}

	if durationSecs > 0 {
		ms.AvgSpeedMps = ms.PathLengthM / durationSecs
	}

	ms.RollRangeDeg = units.ConvertAngle(maxRoll-minRoll, units.Degrees)
	ms.PitchRangeDeg = units.ConvertAngle(maxPitch-minPitch, units.Degrees)
	ms.YawRangeDeg = units.ConvertAngle(maxYaw-minYaw, units.Degrees)
	return ms
}

func computeTracking(samples []db.Sample) TrackingStats {
	ts := TrackingStats{}
	tracked := 0
	for i, s := range samples {
		if s.Tracking {
			tracked++
		}
		if i > 0 && samples[i-1].Tracking && !s.Tracking {
			ts.DropoutCount++
		}
	}
	ts.TrackedPct = float64(tracked) / float64(len(samples)) * 100
	return ts
}

func printReport(report *SessionReport) {
	fmt.Println("\n=== Session Report ===")
	fmt.Printf("Session: %s\n", report.SessionID)
	fmt.Printf("Device: %s\n", report.DeviceID)
	if report.Notes != "" {
		fmt.Printf("Notes: %s\n", report.Notes)
	}
	fmt.Printf("Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Printf("Duration: %.2fs\n", report.DurationSecs)
	fmt.Printf("Samples: %d\n", report.SampleCount)

	fmt.Println("\n--- Timing ---")
	fmt.Printf("Effective Rate: %.1f Hz\n", report.Timing.EffectiveRateHz)
	fmt.Printf("Mean Interval: %.2f ms (±%.2f)\n", report.Timing.MeanIntervalMs, report.Timing.StdDevIntervalMs)
	fmt.Printf("P50/P95/P99: %.2f / %.2f / %.2f ms\n",
		report.Timing.P50IntervalMs, report.Timing.P95IntervalMs, report.Timing.P99IntervalMs)
	fmt.Printf("Max Interval: %.2f ms\n", report.Timing.MaxIntervalMs)

	fmt.Println("\n--- Motion ---")
	fmt.Printf("Path Length: %.2f m\n", report.Motion.PathLengthM)
	fmt.Printf("Avg Speed: %.2f m/s\n", report.Motion.AvgSpeedMps)
	fmt.Printf("Max Speed: %.2f m/s\n", report.Motion.MaxSpeedMps)
	fmt.Printf("X Range: %.2f to %.2f m\n", report.Motion.MinX, report.Motion.MaxX)
	fmt.Printf("Y Range: %.2f to %.2f m\n", report.Motion.MinY, report.Motion.MaxY)
	fmt.Printf("Z Range: %.2f to %.2f m\n", report.Motion.MinZ, report.Motion.MaxZ)
	fmt.Printf("Roll/Pitch/Yaw Range: %.1f / %.1f / %.1f deg\n",
		report.Motion.RollRangeDeg, report.Motion.PitchRangeDeg, report.Motion.YawRangeDeg)

	fmt.Println("\n--- Tracking ---")
	fmt.Printf("Tracked: %.1f%%\n", report.Tracking.TrackedPct)
	fmt.Printf("Dropouts: %d\n", report.Tracking.DropoutCount)

	fmt.Println("\n--- Battery ---")
	fmt.Printf("Start: %d%%\n", report.Battery.StartPercent)
	fmt.Printf("End: %d%%\n", report.Battery.EndPercent)
	fmt.Printf("Drain: %d%%\n", report.Battery.DrainPercent)
}

func exportJSON(report *SessionReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

var seriesColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
}

// generatePlots renders the session charts into outputDir and returns
// how many files were written.
func generatePlots(samples []db.Sample, outputDir string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	t0 := samples[0].Timestamp

	if err := plotPath(samples, filepath.Join(outputDir, "path.png")); err != nil {
		return 0, fmt.Errorf("path plot: %w", err)
	}
	if err := plotPosition(samples, t0, filepath.Join(outputDir, "position.png")); err != nil {
		return 1, fmt.Errorf("position plot: %w", err)
	}
	if err := plotOrientation(samples, t0, filepath.Join(outputDir, "orientation.png")); err != nil {
		return 2, fmt.Errorf("orientation plot: %w", err)
	}
	if err := plotIntervals(samples, filepath.Join(outputDir, "intervals.png")); err != nil {
		return 3, fmt.Errorf("intervals plot: %w", err)
	}

	return 4, nil
}

// plotPath draws the field-frame XY track from above.
func plotPath(samples []db.Sample, file string) error {
	p := plot.New()
	p.Title.Text = "Field Path"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: s.X, Y: s.Y}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = seriesColors[0]
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(8*vg.Inch, 8*vg.Inch, file)
}

// plotPosition draws the three field coordinates against session time.
func plotPosition(samples []db.Sample, t0 float64, file string) error {
	p := plot.New()
	p.Title.Text = "Position"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Distance (m)"

	series := []struct {
		name  string
		value func(db.Sample) float64
	}{
		{"X", func(s db.Sample) float64 { return s.X }},
		{"Y", func(s db.Sample) float64 { return s.Y }},
		{"Z", func(s db.Sample) float64 { return s.Z }},
	}

	for i, sv := range series {
		pts := make(plotter.XYs, len(samples))
		for j, s := range samples {
			pts[j] = plotter.XY{X: s.Timestamp - t0, Y: sv.value(s)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = seriesColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(sv.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}

// plotOrientation draws roll/pitch/yaw in degrees against session time.
func plotOrientation(samples []db.Sample, t0 float64, file string) error {
	p := plot.New()
	p.Title.Text = "Orientation"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (deg)"

	series := []struct {
		name  string
		value func(db.Sample) float64
	}{
		{"Roll", func(s db.Sample) float64 { return s.Pose().Rotation.X() }},
		{"Pitch", func(s db.Sample) float64 { return s.Pose().Rotation.Y() }},
		{"Yaw", func(s db.Sample) float64 { return s.Pose().Rotation.Z() }},
	}

	for i, sv := range series {
		pts := make(plotter.XYs, len(samples))
		for j, s := range samples {
			pts[j] = plotter.XY{
				X: s.Timestamp - t0,
				Y: units.ConvertAngle(sv.value(s), units.Degrees),
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = seriesColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(sv.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}

// plotIntervals draws the frame-to-frame spacing so stalls stand out.
func plotIntervals(samples []db.Sample, file string) error {
	p := plot.New()
	p.Title.Text = "Frame Intervals"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Interval (ms)"

	pts := make(plotter.XYs, 0, len(samples))
	for i := 1; i < len(samples); i++ {
		pts = append(pts, plotter.XY{
			X: float64(i),
			Y: (samples[i].Timestamp - samples[i-1].Timestamp) * 1000,
		})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = seriesColors[0]
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}
