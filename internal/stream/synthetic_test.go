package stream

import (
	"math"
	"testing"

	"github.com/questrig/questrig/geometry"
)

func TestNewSyntheticGenerator(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	if gen == nil {
		t.Fatal("expected non-nil SyntheticGenerator")
	}
	if gen.FrameRate != 100.0 {
		t.Errorf("expected FrameRate=100.0, got %f", gen.FrameRate)
	}
	if gen.WalkRadius != 2.0 {
		t.Errorf("expected WalkRadius=2.0, got %f", gen.WalkRadius)
	}
	if gen.WalkPeriod != 12.0 {
		t.Errorf("expected WalkPeriod=12.0, got %f", gen.WalkPeriod)
	}
	if gen.EyeHeight != 1.6 {
		t.Errorf("expected EyeHeight=1.6, got %f", gen.EyeHeight)
	}
	if gen.rng == nil {
		t.Error("expected non-nil rng")
	}
	if gen.start.IsZero() {
		t.Error("expected start time to be set")
	}
}

func TestSyntheticGenerator_PoseAt(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	// At t=0 the walker stands at (R, 0, eye height) facing +y.
	pose := gen.PoseAt(0)

	if math.Abs(pose.Translation.X-gen.WalkRadius) > 1e-9 {
		t.Errorf("expected x=%f, got %f", gen.WalkRadius, pose.Translation.X)
	}
	if math.Abs(pose.Translation.Y) > 1e-9 {
		t.Errorf("expected y=0, got %f", pose.Translation.Y)
	}
	if math.Abs(pose.Translation.Z-gen.EyeHeight) > 1e-9 {
		t.Errorf("expected z=%f, got %f", gen.EyeHeight, pose.Translation.Z)
	}
	if math.Abs(pose.Rotation.Z()-math.Pi/2) > 1e-9 {
		t.Errorf("expected yaw=pi/2, got %f", pose.Rotation.Z())
	}
}

func TestSyntheticGenerator_PoseAt_Deterministic(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	a := gen.PoseAt(3.7)
	b := gen.PoseAt(3.7)

	if !a.ApproxEqual(b) {
		t.Errorf("expected identical poses, got %v and %v", a, b)
	}
}

func TestSyntheticGenerator_WalkStaysOnCircle(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	for i := 0; i < 50; i++ {
		elapsed := float64(i) * 0.37
		pose := gen.PoseAt(elapsed)

		radius := math.Hypot(pose.Translation.X, pose.Translation.Y)
		if math.Abs(radius-gen.WalkRadius) > 1e-9 {
			t.Fatalf("at t=%.2f walked off the circle: radius=%f", elapsed, radius)
		}
		if math.Abs(pose.Translation.Z-gen.EyeHeight) > gen.BobAmplitude+1e-9 {
			t.Fatalf("at t=%.2f head bob out of range: z=%f", elapsed, pose.Translation.Z)
		}
	}
}

func TestSyntheticGenerator_ResetPoseReseats(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	target := geometry.NewPose3d(
		geometry.NewTranslation3d(5, -1, 0),
		geometry.NewRotation3dFromEuler(0, 0, -math.Pi/2),
	)

	// Seat the motion by hand at a known elapsed time.
	gen.base = gen.rawPoseAt(2.0)
	gen.seat = target

	// At the seat instant the output is the target exactly.
	got := gen.PoseAt(2.0)
	if !got.ApproxEqual(target) {
		t.Errorf("expected pose at seat instant to be the target, got %v", got)
	}

	// Later motion is the raw delta replayed from the target.
	raw := gen.rawPoseAt(5.0)
	want := target.TransformBy(geometry.NewTransform3dBetween(gen.base, raw))
	got = gen.PoseAt(5.0)
	if !got.ApproxEqual(want) {
		t.Errorf("expected re-seated pose %v, got %v", want, got)
	}
}

func TestSyntheticGenerator_NextFrame(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	frame := gen.NextFrame()

	if frame == nil {
		t.Fatal("expected non-nil frame")
	}
	if frame.Frame == nil {
		t.Fatal("expected frame data")
	}
	if frame.Frame.FrameCount != 1 {
		t.Errorf("expected FrameCount=1 for first frame, got %d", frame.Frame.FrameCount)
	}
	if frame.Frame.Pose == nil {
		t.Error("expected a pose")
	}
	if frame.Frame.Timestamp < 0 {
		t.Errorf("expected non-negative timestamp, got %f", frame.Frame.Timestamp)
	}

	// Device data rides on the first frame of each group of ten.
	if frame.Device == nil {
		t.Fatal("expected device data on the first frame")
	}
	if frame.Device.BatteryPercent <= 0 || frame.Device.BatteryPercent > 100 {
		t.Errorf("expected battery in (0,100], got %d", frame.Device.BatteryPercent)
	}

	second := gen.NextFrame()
	if second.Frame.FrameCount != 2 {
		t.Errorf("expected FrameCount=2, got %d", second.Frame.FrameCount)
	}
	if second.Device != nil {
		t.Error("expected no device data on the second frame")
	}
}

func TestSyntheticGenerator_NextFrame_EngineFrame(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	frame := gen.NextFrame()

	// Frames go out in the engine frame. Converting back must land near
	// the walk start; noise and elapsed time stay well under 5cm here.
	pose := geometry.UnityToFrcPose(geometry.NewPose3dFromProto(frame.Frame.Pose))
	start := geometry.NewTranslation3d(gen.WalkRadius, 0, gen.EyeHeight)
	if d := pose.Translation.Distance(start); d > 0.05 {
		t.Errorf("decoded pose is %.3fm from the walk start", d)
	}
}

func TestSyntheticGenerator_Battery(t *testing.T) {
	gen := NewSyntheticGenerator(42)

	if got := gen.batteryAt(0); got != 100 {
		t.Errorf("expected full battery at t=0, got %d", got)
	}
	if got := gen.batteryAt(120); got != 98 {
		t.Errorf("expected 98%% after two minutes, got %d", got)
	}
	if got := gen.batteryAt(7200); got != 5 {
		t.Errorf("expected floor of 5%%, got %d", got)
	}
}
