// Command replay-server streams a recorded session over the pose
// stream, so robot-side clients can be exercised against a real trace
// without a headset on the network.
//
// Usage:
//
//	go run ./cmd/tools/replay-server [flags]
//
// Flags:
//
//	-addr      Listen address (default: localhost:50051)
//	-db        Trace database to replay from
//	-session   Session ID to replay (default: most recent)
//	-loop      Loop playback when reaching the end (default: false)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/quest"
	"github.com/questrig/questrig/internal/quest/pb"
	"github.com/questrig/questrig/internal/stream"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "Listen address")
	dbPath := flag.String("db", "questrig.db", "Trace database to replay from")
	sessionID := flag.String("session", "", "Session ID to replay (default: most recent)")
	loop := flag.Bool("loop", false, "Loop playback when reaching the end")
	flag.Parse()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	session, err := resolveSession(database, *sessionID)
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

	duration := samples[len(samples)-1].Timestamp - samples[0].Timestamp
	log.Printf("Replaying session %s: %d frames, %.2f seconds, device=%s",
		session.ID, len(samples), duration, session.DeviceID)

	cfg := stream.DefaultConfig()
	cfg.ListenAddr = *addr
	publisher := stream.NewPublisher(cfg)

	// Replayed frames feed a tracker so the status RPC answers. There is
	// no live headset behind the stream, so pose resets have no handler
	// and are rejected by the server.
	tracker := quest.NewTracker(quest.DefaultTrackerConfig(), nil)
	commands := quest.NewCommandQueue(0, nil)
	stream.RegisterService(publisher.GRPCServer(), stream.NewServer(publisher, tracker, commands, nil))

	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start stream server: %v", err)
	}
	defer publisher.Stop()

	log.Printf("Server ready on %s, waiting for subscribers...", publisher.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		publish := func(frame *pb.StreamFrame) {
			tracker.IngestFrame(frame.Frame)
			if frame.Device != nil {
				tracker.IngestDevice(frame.Device)
			}
			publisher.Publish(frame)
		}
		for {
			if err := replayOnce(ctx, samples, publish); err != nil {
				return
			}
			if !*loop {
				log.Printf("Replay finished")
				return
			}
			log.Printf("Looping replay")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutting down...")
}

// replayOnce walks the samples at their recorded cadence, publishing
// each as a stream frame. Returns early with the context error on
// cancellation.
func replayOnce(ctx context.Context, samples []db.Sample, publish func(*pb.StreamFrame)) error {
	for i, s := range samples {
		if i > 0 {
			delta := time.Duration((s.Timestamp - samples[i-1].Timestamp) * float64(time.Second))
			if delta > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delta):
				}
			}
		}
		publish(frameFromSample(s, i%10 == 0))
	}
	return nil
}

// frameFromSample rebuilds the engine-frame wire frame a headset would
// have sent for the stored field-frame sample. Device data rides along
// on the same every-tenth cadence as a live stream.
func frameFromSample(s db.Sample, includeDevice bool) *pb.StreamFrame {
	engine := geometry.FrcToUnityPose(s.Pose())
	frame := &pb.StreamFrame{
		Frame: &pb.FrameData{
			FrameCount: s.FrameCount,
			Timestamp:  s.Timestamp,
			Pose:       engine.ToProto(),
		},
	}
	if includeDevice {
		frame.Device = &pb.DeviceData{
			CurrentlyTracking: s.Tracking,
			BatteryPercent:    s.BatteryPercent,
		}
	}
	return frame
}

// resolveSession looks up the named session, or the most recent one
// when id is empty.
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
