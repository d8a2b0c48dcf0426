package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one connect-to-disconnect recording of headset frames.
type Session struct {
	ID          string     `json:"id"`
	DeviceID    string     `json:"device_id"`
	Notes       string     `json:"notes"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	SampleCount int        `json:"sample_count"`
}

// CreateSession opens a new session and returns it with a fresh ID.
func (db *DB) CreateSession(deviceID, notes string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Notes:     notes,
		StartedAt: time.Now(),
	}

	_, err := db.Exec(
		`INSERT INTO sessions (id, device_id, notes, started_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.DeviceID, session.Notes, unixSeconds(session.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// EndSession stamps the session's end time. Ending an already ended
// session moves the stamp.
func (db *DB) EndSession(id string) error {
	res, err := db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, unixSeconds(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// GetSession retrieves one session with its sample count.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT s.id, s.device_id, s.notes, s.started_at, s.ended_at,
		       (SELECT COUNT(*) FROM samples WHERE session_id = s.id)
		FROM sessions s
		WHERE s.id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListSessions returns sessions newest first, up to limit.
func (db *DB) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT s.id, s.device_id, s.notes, s.started_at, s.ended_at,
		       (SELECT COUNT(*) FROM samples WHERE session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var startedAt float64
	var endedAt sql.NullFloat64

	if err := row.Scan(
		&session.ID,
		&session.DeviceID,
		&session.Notes,
		&startedAt,
		&endedAt,
		&session.SampleCount,
	); err != nil {
		return nil, err
	}

	session.StartedAt = timeFromUnixSeconds(startedAt)
	if endedAt.Valid {
		t := timeFromUnixSeconds(endedAt.Float64)
		session.EndedAt = &t
	}
	return &session, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9))
}
