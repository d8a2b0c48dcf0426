package db

import (
	"log"
	"sync"
	"time"

	"github.com/questrig/questrig/internal/quest"
)

// Recorder drains the tracker's unread frames into pose samples on a
// fixed cadence. Sessions follow connectivity: the first frames after a
// gap open a session, losing the headset closes it.
type Recorder struct {
	DB       *DB
	Tracker  *quest.Tracker
	DeviceID string
	Interval time.Duration // how often to flush (e.g. 500ms)
	StopChan chan struct{}

	mu      sync.Mutex
	session *Session
}

func NewRecorder(db *DB, tracker *quest.Tracker, deviceID string) *Recorder {
	return &Recorder{
		DB:       db,
		Tracker:  tracker,
		DeviceID: deviceID,
		Interval: 500 * time.Millisecond,
		StopChan: make(chan struct{}),
	}
}

// Start runs the periodic flush loop in a goroutine.
func (r *Recorder) Start() {
	go func() {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.RunOnce(); err != nil {
					log.Printf("[Recorder] flush error: %v", err)
				}
			case <-r.StopChan:
				// Final flush so a clean shutdown loses nothing.
				if err := r.RunOnce(); err != nil {
					log.Printf("[Recorder] final flush error: %v", err)
				}
				r.closeSession()
				return
			}
		}
	}()
}

// Stop requests the recorder to stop.
func (r *Recorder) Stop() {
	close(r.StopChan)
}

// RunOnce drains the tracker once and writes one batch.
func (r *Recorder) RunOnce() error {
	frames := r.Tracker.UnreadFrames()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(frames) == 0 {
		if r.session != nil && !r.Tracker.Connected() {
			r.closeSessionLocked()
		}
		return nil
	}

	if r.session == nil {
		session, err := r.DB.CreateSession(r.DeviceID, "")
		if err != nil {
			return err
		}
		r.session = session
		log.Printf("[Recorder] session %s started", session.ID)
	}

	status := r.Tracker.Status()
	samples := make([]Sample, len(frames))
	for i, frame := range frames {
		s := Sample{
			SessionID:      r.session.ID,
			FrameCount:     frame.Count,
			Timestamp:      frame.Timestamp,
			BatteryPercent: status.BatteryPercent,
			Tracking:       status.Tracking,
			RecordedAt:     unixSeconds(frame.ReceivedAt),
		}
		s.SetPose(frame.Pose)
		samples[i] = s
	}

	return r.DB.InsertSamples(r.session.ID, samples)
}

// CurrentSession returns the open session, or nil between sessions.
func (r *Recorder) CurrentSession() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Recorder) closeSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeSessionLocked()
}

func (r *Recorder) closeSessionLocked() {
	if r.session == nil {
		return
	}
	if err := r.DB.EndSession(r.session.ID); err != nil {
		log.Printf("[Recorder] failed to end session %s: %v", r.session.ID, err)
	} else {
		log.Printf("[Recorder] session %s ended", r.session.ID)
	}
	r.session = nil
}
