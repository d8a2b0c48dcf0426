package stream

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/quest/pb"
)

// SyntheticGenerator produces smooth synthetic headset motion for demos
// and tests: a circular walk at eye height with head bob and a slow
// look-around sweep, all in the field frame. Frames go out in the engine
// frame, exactly as a real headset would send them.
type SyntheticGenerator struct {
	start time.Time

	// Configuration
	FrameRate      float64 // frames per second
	WalkRadius     float64 // metres, radius of the circular walk
	WalkPeriod     float64 // seconds per lap
	EyeHeight      float64 // metres
	BobAmplitude   float64 // metres of vertical head bob
	BobPeriod      float64 // seconds per bob cycle
	SweepAmplitude float64 // radians of yaw look-around
	SweepPeriod    float64 // seconds per sweep cycle
	NodAmplitude   float64 // radians of pitch nod
	PositionNoise  float64 // metres of per-frame positional jitter

	mu         sync.Mutex
	frameCount int32
	trackLost  int32
	base       geometry.Pose3d // raw motion pose at the last reset
	seat       geometry.Pose3d // commanded pose at the last reset
	rng        *rand.Rand
}

// NewSyntheticGenerator creates a generator. Seed zero selects a
// time-based seed.
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticGenerator{
		start:          time.Now(),
		FrameRate:      100.0,
		WalkRadius:     2.0,
		WalkPeriod:     12.0,
		EyeHeight:      1.6,
		BobAmplitude:   0.03,
		BobPeriod:      0.9,
		SweepAmplitude: 0.4,
		SweepPeriod:    7.0,
		NodAmplitude:   0.08,
		PositionNoise:  0.001,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// rawPoseAt is the unseated motion model at the given elapsed seconds.
func (g *SyntheticGenerator) rawPoseAt(elapsed float64) geometry.Pose3d {
	theta := 2 * math.Pi * elapsed / g.WalkPeriod

	translation := geometry.NewTranslation3d(
		g.WalkRadius*math.Cos(theta),
		g.WalkRadius*math.Sin(theta),
		g.EyeHeight+g.BobAmplitude*math.Sin(2*math.Pi*elapsed/g.BobPeriod),
	)

	// Face along the walk tangent, with the look-around and nod on top.
	yaw := theta + math.Pi/2 + g.SweepAmplitude*math.Sin(2*math.Pi*elapsed/g.SweepPeriod)
	pitch := g.NodAmplitude * math.Sin(2*math.Pi*elapsed/g.BobPeriod)
	rotation := geometry.NewRotation3dFromEuler(0, pitch, yaw)

	return geometry.NewPose3d(translation, rotation)
}

// PoseAt returns the field-frame pose at the given elapsed seconds,
// including any applied pose reset. Deterministic: no jitter.
func (g *SyntheticGenerator) PoseAt(elapsed float64) geometry.Pose3d {
	raw := g.rawPoseAt(elapsed)
	g.mu.Lock()
	base, seat := g.base, g.seat
	g.mu.Unlock()
	return seat.TransformBy(geometry.NewTransform3dBetween(base, raw))
}

// ResetPose re-seats the motion so the current output pose becomes
// target, the way a headset applies a pose-reset command. Motion
// continues smoothly from the new seat.
func (g *SyntheticGenerator) ResetPose(target geometry.Pose3d) error {
	elapsed := time.Since(g.start).Seconds()
	raw := g.rawPoseAt(elapsed)

	g.mu.Lock()
	g.base = raw
	g.seat = target
	g.mu.Unlock()
	return nil
}

// NextFrame generates the next engine-frame stream frame. Device data
// rides along every tenth frame.
func (g *SyntheticGenerator) NextFrame() *pb.StreamFrame {
	elapsed := time.Since(g.start).Seconds()
	pose := g.PoseAt(elapsed)

	g.mu.Lock()
	g.frameCount++
	count := g.frameCount

	if g.PositionNoise > 0 {
		pose.Translation = pose.Translation.Plus(geometry.NewTranslation3d(
			g.rng.NormFloat64()*g.PositionNoise,
			g.rng.NormFloat64()*g.PositionNoise,
			g.rng.NormFloat64()*g.PositionNoise,
		))
	}

	// Simulated tracking blips, about one frame in a thousand.
	tracking := true
	if g.rng.Float64() < 0.001 {
		tracking = false
		g.trackLost++
	}
	trackLost := g.trackLost
	g.mu.Unlock()

	engine := geometry.FrcToUnityPose(pose)
	frame := &pb.StreamFrame{
		Frame: &pb.FrameData{
			FrameCount: count,
			Timestamp:  elapsed,
			Pose:       engine.ToProto(),
		},
	}

	if count%10 == 1 {
		frame.Device = &pb.DeviceData{
			CurrentlyTracking:   tracking,
			TrackingLostCounter: trackLost,
			BatteryPercent:      g.batteryAt(elapsed),
		}
	}
	return frame
}

// batteryAt drains one percent per minute from full, bottoming out at 5.
func (g *SyntheticGenerator) batteryAt(elapsed float64) int32 {
	battery := 100 - int32(elapsed/60)
	if battery < 5 {
		battery = 5
	}
	return battery
}

// Run generates frames at the configured rate and publishes them until
// the context is cancelled.
func (g *SyntheticGenerator) Run(ctx context.Context, publish func(*pb.StreamFrame)) {
	interval := time.Duration(float64(time.Second) / g.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish(g.NextFrame())
		}
	}
}
