package db

import (
	"fmt"

	"github.com/questrig/questrig/geometry"
)

// Sample is one recorded pose frame. The pose columns are field-frame:
// x/y/z in meters, qw..qz the orientation quaternion.
type Sample struct {
	ID             int64   `json:"id"`
	SessionID      string  `json:"session_id"`
	FrameCount     int32   `json:"frame_count"`
	Timestamp      float64 `json:"timestamp"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Z              float64 `json:"z"`
	QW             float64 `json:"qw"`
	QX             float64 `json:"qx"`
	QY             float64 `json:"qy"`
	QZ             float64 `json:"qz"`
	BatteryPercent int32   `json:"battery_percent"`
	Tracking       bool    `json:"tracking"`
	RecordedAt     float64 `json:"recorded_at"`
}

// Pose reassembles the stored field-frame pose.
func (s Sample) Pose() geometry.Pose3d {
	return geometry.NewPose3d(
		geometry.NewTranslation3d(s.X, s.Y, s.Z),
		geometry.NewRotation3d(geometry.NewQuaternion(s.QW, s.QX, s.QY, s.QZ)),
	)
}

// SetPose stores the pose into the sample's columns.
func (s *Sample) SetPose(pose geometry.Pose3d) {
	s.X = pose.Translation.X
	s.Y = pose.Translation.Y
	s.Z = pose.Translation.Z
	q := pose.Rotation.Quaternion()
	s.QW = q.W
	s.QX = q.X
	s.QY = q.Y
	s.QZ = q.Z
}

// InsertSamples writes a batch of samples in one transaction. Samples
// arrive at the stream rate, so per-row transactions would thrash the
// WAL.
func (db *DB) InsertSamples(sessionID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin sample batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO samples (
			session_id, frame_count, timestamp,
			x, y, z, qw, qx, qy, qz,
			battery_percent, tracking, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		tracking := 0
		if s.Tracking {
			tracking = 1
		}
		if _, err := stmt.Exec(
			sessionID, s.FrameCount, s.Timestamp,
			s.X, s.Y, s.Z, s.QW, s.QX, s.QY, s.QZ,
			s.BatteryPercent, tracking, s.RecordedAt,
		); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// SamplesForSession returns a session's samples in time order, up to
// limit (0 means all).
func (db *DB) SamplesForSession(sessionID string, limit int) ([]Sample, error) {
	query := `
		SELECT id, session_id, frame_count, timestamp,
		       x, y, z, qw, qx, qy, qz,
		       battery_percent, tracking, recorded_at
		FROM samples
		WHERE session_id = ?
		ORDER BY timestamp ASC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var tracking int
		if err := rows.Scan(
			&s.ID, &s.SessionID, &s.FrameCount, &s.Timestamp,
			&s.X, &s.Y, &s.Z, &s.QW, &s.QX, &s.QY, &s.QZ,
			&s.BatteryPercent, &tracking, &s.RecordedAt,
		); err != nil {
			return nil, err
		}
		s.Tracking = tracking == 1
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// SampleCount returns the number of samples recorded for a session.
func (db *DB) SampleCount(sessionID string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM samples WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return count, nil
}
