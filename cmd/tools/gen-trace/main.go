// Command gen-trace records a synthetic headset session into a trace
// database, giving the analysis tools something to work with when no
// headset is around.
package main

import (
	"flag"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/stream"
)

func main() {
	dbPath := flag.String("db", "questrig.db", "trace database path")
	frames := flag.Int("n", 6000, "number of frames")
	rate := flag.Float64("rate", 100, "sample rate in Hz")
	device := flag.String("device", "quest-synthetic", "device ID for the session")
	seed := flag.Int64("seed", 1, "motion seed")
	flag.Parse()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	session, err := database.CreateSession(*device, "synthetic trace")
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	gen := stream.NewSyntheticGenerator(*seed)
	samples := buildSamples(gen, session.ID, *frames, *rate)

	const batch = 500
	for i := 0; i < len(samples); i += batch {
		end := i + batch
		if end > len(samples) {
			end = len(samples)
		}
		if err := database.InsertSamples(session.ID, samples[i:end]); err != nil {
			log.Fatalf("Failed to insert samples: %v", err)
		}
		log.Printf("%d/%d frames", end, len(samples))
	}

	if err := database.EndSession(session.ID); err != nil {
		log.Fatalf("Failed to end session: %v", err)
	}
	log.Printf("✓ Created: session %s (%d frames) in %s", session.ID, len(samples), *dbPath)
}

// buildSamples steps the motion model at the given rate without waiting
// on the wall clock, so a ten-minute trace lands in milliseconds.
func buildSamples(gen *stream.SyntheticGenerator, sessionID string, frames int, rate float64) []db.Sample {
	base := float64(time.Now().UnixNano()) / 1e9
	samples := make([]db.Sample, 0, frames)
	for i := 0; i < frames; i++ {
		elapsed := float64(i) / rate

		battery := 100 - int32(elapsed/60)
		if battery < 5 {
			battery = 5
		}

		s := db.Sample{
			SessionID:      sessionID,
			FrameCount:     int32(i + 1),
			Timestamp:      elapsed,
			BatteryPercent: battery,
			Tracking:       true,
			RecordedAt:     base + elapsed,
		}
		s.SetPose(gen.PoseAt(elapsed))
		samples = append(samples, s)
	}
	return samples
}
