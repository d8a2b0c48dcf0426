// Package main renders an interactive HTML report for a recorded pose
// session using go-echarts. The output is a single page a coach can open
// in a browser after a practice run.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	_ "modernc.org/sqlite"

	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/units"
)

// Config holds configuration for the report generator.
type Config struct {
	DBPath    string
	SessionID string
	Output    string
	MaxPoints int
}

// viridisColors matches the matplotlib viridis ramp, dark to bright.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
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

	samples, err := database.SamplesForSession(session.ID, 0)
	if err != nil {
		log.Fatalf("Failed to load samples: %v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("Session %s has no samples", session.ID)
	}

	// Downsample by stride to keep the page responsive
	stride := 1
	if len(samples) > cfg.MaxPoints {
		stride = int(math.Ceil(float64(len(samples)) / float64(cfg.MaxPoints)))
	}

	page := buildPage(session, samples, stride)

	f, err := os.Create(cfg.Output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}

	log.Printf("Report for session %s written to %s (%d samples, stride %d)",
		session.ID, cfg.Output, len(samples), stride)
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DBPath, "db", "questrig.db", "Path to the trace database")
	flag.StringVar(&cfg.SessionID, "session", "", "Session ID to report on (default: most recent)")
	flag.StringVar(&cfg.Output, "output", "trace-report.html", "Output HTML file")
	flag.IntVar(&cfg.MaxPoints, "max-points", 8000, "Maximum chart points before downsampling")

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

func buildPage(session *db.Session, samples []db.Sample, stride int) *components.Page {
	page := components.NewPage()
	page.AddCharts(
		pathChart(session, samples, stride),
		positionChart(samples, stride),
		orientationChart(samples, stride),
		batteryChart(samples, stride),
	)
	return page
}

// pathChart draws the field-frame XY track from above, colored by
// session time so direction of travel is readable.
func pathChart(session *db.Session, samples []db.Sample, stride int) *charts.Scatter {
	t0 := samples[0].Timestamp
	duration := samples[len(samples)-1].Timestamp - t0

	data := make([]opts.ScatterData, 0, len(samples)/stride+1)
	maxAbs := 0.0
	for i := 0; i < len(samples); i += stride {
		s := samples[i]
		if math.Abs(s.X) > maxAbs {
			maxAbs = math.Abs(s.X)
		}
		if math.Abs(s.Y) > maxAbs {
			maxAbs = math.Abs(s.Y)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{s.X, s.Y, s.Timestamp - t0}})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if duration == 0 {
		duration = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "QuestRig Trace Report", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Field Path", Subtitle: fmt.Sprintf("session=%s device=%s points=%d", session.ID, session.DeviceID, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(duration),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("path", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

// positionChart draws the three field coordinates against session time.
func positionChart(samples []db.Sample, stride int) *charts.Line {
	t0 := samples[0].Timestamp

	labels := make([]string, 0, len(samples)/stride+1)
	xs := make([]opts.LineData, 0, len(samples)/stride+1)
	ys := make([]opts.LineData, 0, len(samples)/stride+1)
	zs := make([]opts.LineData, 0, len(samples)/stride+1)
	for i := 0; i < len(samples); i += stride {
		s := samples[i]
		labels = append(labels, fmt.Sprintf("%.2f", s.Timestamp-t0))
		xs = append(xs, opts.LineData{Value: s.X})
		ys = append(ys, opts.LineData{Value: s.Y})
		zs = append(zs, opts.LineData{Value: s.Z})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Position", Subtitle: "field-frame meters over session time (s)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).
		AddSeries("X", xs).
		AddSeries("Y", ys).
		AddSeries("Z", zs)
	return line
}

// orientationChart draws roll/pitch/yaw in degrees against session time.
func orientationChart(samples []db.Sample, stride int) *charts.Line {
	t0 := samples[0].Timestamp

	labels := make([]string, 0, len(samples)/stride+1)
	rolls := make([]opts.LineData, 0, len(samples)/stride+1)
	pitches := make([]opts.LineData, 0, len(samples)/stride+1)
	yaws := make([]opts.LineData, 0, len(samples)/stride+1)
	for i := 0; i < len(samples); i += stride {
		s := samples[i]
		rot := s.Pose().Rotation
		labels = append(labels, fmt.Sprintf("%.2f", s.Timestamp-t0))
		rolls = append(rolls, opts.LineData{Value: units.ConvertAngle(rot.X(), units.Degrees)})
		pitches = append(pitches, opts.LineData{Value: units.ConvertAngle(rot.Y(), units.Degrees)})
		yaws = append(yaws, opts.LineData{Value: units.ConvertAngle(rot.Z(), units.Degrees)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Orientation", Subtitle: "roll/pitch/yaw in degrees over session time (s)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).
		AddSeries("Roll", rolls).
		AddSeries("Pitch", pitches).
		AddSeries("Yaw", yaws)
	return line
}

// batteryChart draws headset battery percent against session time.
func batteryChart(samples []db.Sample, stride int) *charts.Line {
	t0 := samples[0].Timestamp

	labels := make([]string, 0, len(samples)/stride+1)
	battery := make([]opts.LineData, 0, len(samples)/stride+1)
	for i := 0; i < len(samples); i += stride {
		s := samples[i]
		labels = append(labels, fmt.Sprintf("%.2f", s.Timestamp-t0))
		battery = append(battery, opts.LineData{Value: s.BatteryPercent})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Battery", Subtitle: "headset battery percent over session time (s)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).AddSeries("Battery %", battery)
	return line
}
