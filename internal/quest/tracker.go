// Package quest maintains the robot-side view of a streaming headset:
// a bounded buffer of unread pose frames, connection and tracking health,
// and the pose-reset command protocol.
package quest

import (
	"sync"
	"time"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/quest/pb"
	"github.com/questrig/questrig/internal/timeutil"
)

// TrackerConfig holds tuning knobs for the frame tracker.
type TrackerConfig struct {
	// RingCapacity bounds the unread-frame buffer. When full, the oldest
	// unread frame is discarded and counted as overflow.
	RingCapacity int

	// Liveness is how long the tracker waits without a frame before
	// reporting the headset as disconnected.
	Liveness time.Duration

	// LatencyAlpha is the EMA weight applied to each new latency sample.
	LatencyAlpha float64
}

// DefaultTrackerConfig returns the tracker defaults: a buffer comfortably
// larger than one robot loop's worth of 100 Hz frames, a quarter-second
// liveness window, and a lightly smoothed latency estimate.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		RingCapacity: 64,
		Liveness:     250 * time.Millisecond,
		LatencyAlpha: 0.1,
	}
}

// Frame is one decoded tracking sample with its pose already converted to
// the field frame.
type Frame struct {
	Count      int32
	Timestamp  float64 // headset clock, seconds
	Pose       geometry.Pose3d
	ReceivedAt time.Time
}

// Status is a point-in-time summary of tracker state.
type Status struct {
	Connected        bool
	Tracking         bool
	BatteryPercent   int32
	FrameCount       int32
	TrackingLost     int32
	DroppedFrames    int64
	OverflowedFrames int64
	LatencyMs        float64
}

// Tracker ingests decoded headset messages and answers the questions robot
// code asks every loop. One writer (the intake goroutine) and any number
// of readers.
type Tracker struct {
	config TrackerConfig
	clock  timeutil.Clock

	mu          sync.RWMutex
	unread      []Frame
	latest      Frame
	hasFrame    bool
	lastFrameAt time.Time

	dropped  int64 // gaps in the headset frame counter
	overflow int64 // unread frames discarded to ring capacity

	tracking     bool
	trackingLost int32
	battery      int32

	// Latency is measured against the fastest delivery seen so far, which
	// absorbs the unknown clock offset between headset and host.
	latencyMs   float64
	hasLatency  bool
	baseline    float64
	hasBaseline bool
}

// NewTracker creates a tracker with the given configuration. Zero config
// fields fall back to the defaults.
func NewTracker(config TrackerConfig, clock timeutil.Clock) *Tracker {
	def := DefaultTrackerConfig()
	if config.RingCapacity <= 0 {
		config.RingCapacity = def.RingCapacity
	}
	if config.Liveness <= 0 {
		config.Liveness = def.Liveness
	}
	if config.LatencyAlpha <= 0 || config.LatencyAlpha > 1 {
		config.LatencyAlpha = def.LatencyAlpha
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Tracker{
		config: config,
		clock:  clock,
		unread: make([]Frame, 0, config.RingCapacity),
	}
}

// IngestFrame records one tracking sample. The engine-frame pose is
// converted to the field frame here, once, so every consumer reads field
// coordinates. A frame counter that regresses is treated as a headset
// restart rather than a drop.
func (t *Tracker) IngestFrame(fd *pb.FrameData) {
	if fd == nil {
		return
	}

	now := t.clock.Now()
	frame := Frame{
		Count:      fd.FrameCount,
		Timestamp:  fd.Timestamp,
		Pose:       geometry.UnityToFrcPose(geometry.NewPose3dFromProto(fd.Pose)),
		ReceivedAt: now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasFrame {
		gap := frame.Count - t.latest.Count
		if gap > 1 {
			t.dropped += int64(gap - 1)
		}
	}

	if len(t.unread) >= t.config.RingCapacity {
		copy(t.unread, t.unread[1:])
		t.unread = t.unread[:len(t.unread)-1]
		t.overflow++
	}
	t.unread = append(t.unread, frame)

	t.latest = frame
	t.hasFrame = true
	t.lastFrameAt = now

	t.observeLatency(frame)
}

// observeLatency folds one delivery-delay sample into the EMA. Caller
// holds t.mu.
func (t *Tracker) observeLatency(frame Frame) {
	sample := float64(frame.ReceivedAt.UnixNano())/1e9 - frame.Timestamp
	if !t.hasBaseline || sample < t.baseline {
		t.baseline = sample
		t.hasBaseline = true
	}

	ms := (sample - t.baseline) * 1000
	if !t.hasLatency {
		t.latencyMs = ms
		t.hasLatency = true
		return
	}
	t.latencyMs = t.config.LatencyAlpha*ms + (1-t.config.LatencyAlpha)*t.latencyMs
}

// IngestDevice records the headset's health state.
func (t *Tracker) IngestDevice(dd *pb.DeviceData) {
	if dd == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = dd.CurrentlyTracking
	t.trackingLost = dd.TrackingLostCounter
	t.battery = dd.BatteryPercent
}

// UnreadFrames drains and returns every frame received since the last
// call, oldest first. The returned slice is the caller's to keep.
func (t *Tracker) UnreadFrames() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.unread) == 0 {
		return nil
	}
	frames := make([]Frame, len(t.unread))
	copy(frames, t.unread)
	t.unread = t.unread[:0]
	return frames
}

// CurrentPose returns the most recent field-frame pose, and whether any
// frame has been received at all.
func (t *Tracker) CurrentPose() (geometry.Pose3d, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest.Pose, t.hasFrame
}

// Connected reports whether a frame arrived within the liveness window.
func (t *Tracker) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connectedLocked()
}

func (t *Tracker) connectedLocked() bool {
	return t.hasFrame && t.clock.Since(t.lastFrameAt) <= t.config.Liveness
}

// Tracking reports whether the headset currently has tracking lock.
func (t *Tracker) Tracking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracking
}

// BatteryPercent returns the last reported battery level.
func (t *Tracker) BatteryPercent() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.battery
}

// FrameCount returns the headset's frame counter from the latest frame.
func (t *Tracker) FrameCount() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest.Count
}

// TrackingLostCount returns how many times the headset reported losing
// tracking since boot.
func (t *Tracker) TrackingLostCount() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trackingLost
}

// DroppedFrames returns the cumulative count of gaps seen in the headset
// frame counter.
func (t *Tracker) DroppedFrames() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// LatencyMs returns the smoothed delivery-latency estimate in
// milliseconds.
func (t *Tracker) LatencyMs() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latencyMs
}

// Status returns a consistent snapshot of the tracker's state.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Status{
		Connected:        t.connectedLocked(),
		Tracking:         t.tracking,
		BatteryPercent:   t.battery,
		FrameCount:       t.latest.Count,
		TrackingLost:     t.trackingLost,
		DroppedFrames:    t.dropped,
		OverflowedFrames: t.overflow,
		LatencyMs:        t.latencyMs,
	}
}
