package db

import (
	"math"
	"testing"
	"time"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/quest"
	"github.com/questrig/questrig/internal/quest/pb"
	"github.com/questrig/questrig/internal/timeutil"
)

// engineFrame builds a wire frame the way the headset sends it.
func engineFrame(count int32, timestamp float64, field geometry.Pose3d) *pb.FrameData {
	return &pb.FrameData{
		FrameCount: count,
		Timestamp:  timestamp,
		Pose:       geometry.FrcToUnityPose(field).ToProto(),
	}
}

func TestRecorder_RunOnce(t *testing.T) {
	database := setupTestDB(t)
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	tracker := quest.NewTracker(quest.DefaultTrackerConfig(), clock)
	recorder := NewRecorder(database, tracker, "quest-3a")

	pose := geometry.NewPose3d(
		geometry.NewTranslation3d(3, 1, 0.5),
		geometry.NewRotation3dFromEuler(0, 0, math.Pi/4),
	)
	tracker.IngestFrame(engineFrame(1, 10.00, pose))
	tracker.IngestFrame(engineFrame(2, 10.01, pose))
	tracker.IngestFrame(engineFrame(3, 10.02, pose))

	if err := recorder.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	session := recorder.CurrentSession()
	if session == nil {
		t.Fatal("expected a session to open on first frames")
	}
	if session.DeviceID != "quest-3a" {
		t.Errorf("expected DeviceID=quest-3a, got %s", session.DeviceID)
	}

	samples, err := database.SamplesForSession(session.ID, 0)
	if err != nil {
		t.Fatalf("SamplesForSession failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if !samples[0].Pose().ApproxEqual(pose) {
		t.Errorf("expected field-frame pose to round trip, got %v", samples[0].Pose())
	}
	if samples[2].FrameCount != 3 {
		t.Errorf("expected last FrameCount=3, got %d", samples[2].FrameCount)
	}

	// No new frames and still connected: session stays open.
	if err := recorder.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if recorder.CurrentSession() == nil {
		t.Error("expected session to stay open while connected")
	}
}

func TestRecorder_ClosesSessionOnDisconnect(t *testing.T) {
	database := setupTestDB(t)
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	tracker := quest.NewTracker(quest.DefaultTrackerConfig(), clock)
	recorder := NewRecorder(database, tracker, "quest-3a")

	pose := geometry.NewPose3d(geometry.NewTranslation3d(1, 1, 0.5), geometry.Rotation3d{})
	tracker.IngestFrame(engineFrame(1, 5.0, pose))

	if err := recorder.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	first := recorder.CurrentSession()
	if first == nil {
		t.Fatal("expected an open session")
	}

	// Headset goes away; the next empty flush closes the session.
	clock.Advance(10 * time.Second)
	if err := recorder.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if recorder.CurrentSession() != nil {
		t.Fatal("expected session to close after disconnect")
	}

	ended, err := database.GetSession(first.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if ended.EndedAt == nil {
		t.Error("expected closed session to have an end time")
	}

	// A returning headset opens a fresh session.
	tracker.IngestFrame(engineFrame(1, 0.5, pose))
	if err := recorder.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	second := recorder.CurrentSession()
	if second == nil {
		t.Fatal("expected a new session after reconnect")
	}
	if second.ID == first.ID {
		t.Error("expected a distinct session ID after reconnect")
	}
}
