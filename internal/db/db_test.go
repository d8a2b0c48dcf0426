package db

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/questrig/questrig/geometry"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	database, err := NewDB(path)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestNewDB_RunsMigrations(t *testing.T) {
	database := setupTestDB(t)

	for _, table := range []string{"sessions", "samples", "settings", "schema_migrations"} {
		var count int
		err := database.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	migrations, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 3 {
		t.Errorf("expected version 3, got %d", version)
	}
	if dirty {
		t.Error("expected clean migration state")
	}
}

func TestOpenDB_Pragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pragmas.db")
	database, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	var journalMode string
	if err := database.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := database.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("expected busy_timeout=5000, got %d", busyTimeout)
	}

	var foreignKeys int
	if err := database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestSessionLifecycle(t *testing.T) {
	database := setupTestDB(t)

	session, err := database.CreateSession("quest-3a", "practice field")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a session ID")
	}

	got, err := database.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.DeviceID != "quest-3a" {
		t.Errorf("expected DeviceID=quest-3a, got %s", got.DeviceID)
	}
	if got.Notes != "practice field" {
		t.Errorf("expected notes to round trip, got %q", got.Notes)
	}
	if got.EndedAt != nil {
		t.Error("expected open session to have no end time")
	}
	if got.SampleCount != 0 {
		t.Errorf("expected SampleCount=0, got %d", got.SampleCount)
	}

	if err := database.EndSession(session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	got, err = database.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.EndedAt == nil {
		t.Fatal("expected end time to be set")
	}
	if got.EndedAt.Before(got.StartedAt) {
		t.Error("expected end time after start time")
	}

	if err := database.EndSession("no-such-session"); err == nil {
		t.Error("expected error ending unknown session")
	}
}

func TestGetSession_NotFound(t *testing.T) {
	database := setupTestDB(t)

	if _, err := database.GetSession("missing"); err == nil {
		t.Error("expected error for missing session")
	}
}

func TestListSessions(t *testing.T) {
	database := setupTestDB(t)

	var ids []string
	for i := 0; i < 3; i++ {
		session, err := database.CreateSession("quest-3a", "")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		ids = append(ids, session.ID)
		time.Sleep(2 * time.Millisecond)
	}

	sessions, err := database.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	// Newest first.
	if sessions[0].ID != ids[2] || sessions[2].ID != ids[0] {
		t.Errorf("expected newest-first ordering, got %v", []string{sessions[0].ID, sessions[1].ID, sessions[2].ID})
	}

	limited, err := database.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions with limit, got %d", len(limited))
	}
}

func TestInsertAndQuerySamples(t *testing.T) {
	database := setupTestDB(t)

	session, err := database.CreateSession("quest-3a", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	poses := []geometry.Pose3d{
		geometry.NewPose3d(geometry.NewTranslation3d(1, 2, 0.5), geometry.NewRotation3dFromEuler(0, 0, math.Pi/2)),
		geometry.NewPose3d(geometry.NewTranslation3d(1.1, 2, 0.5), geometry.NewRotation3dFromEuler(0, 0, math.Pi/2)),
		geometry.NewPose3d(geometry.NewTranslation3d(1.2, 2.1, 0.5), geometry.NewRotation3dFromEuler(0, 0.1, math.Pi/2)),
	}

	samples := make([]Sample, len(poses))
	for i, pose := range poses {
		s := Sample{
			FrameCount:     int32(i + 1),
			Timestamp:      10.0 + float64(i)*0.01,
			BatteryPercent: 90,
			Tracking:       true,
			RecordedAt:     unixSeconds(time.Now()),
		}
		s.SetPose(pose)
		samples[i] = s
	}

	if err := database.InsertSamples(session.ID, samples); err != nil {
		t.Fatalf("InsertSamples failed: %v", err)
	}

	got, err := database.SamplesForSession(session.ID, 0)
	if err != nil {
		t.Fatalf("SamplesForSession failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	for i, s := range got {
		if s.FrameCount != int32(i+1) {
			t.Errorf("sample %d: expected FrameCount=%d, got %d", i, i+1, s.FrameCount)
		}
		if !s.Pose().ApproxEqual(poses[i]) {
			t.Errorf("sample %d: pose did not round trip: got %v, want %v", i, s.Pose(), poses[i])
		}
		if !s.Tracking {
			t.Errorf("sample %d: expected Tracking=true", i)
		}
	}

	count, err := database.SampleCount(session.ID)
	if err != nil {
		t.Fatalf("SampleCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected SampleCount=3, got %d", count)
	}

	limited, err := database.SamplesForSession(session.ID, 2)
	if err != nil {
		t.Fatalf("SamplesForSession failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 samples with limit, got %d", len(limited))
	}

	// Session reflects the sample count.
	info, err := database.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if info.SampleCount != 3 {
		t.Errorf("expected session SampleCount=3, got %d", info.SampleCount)
	}
}

func TestInsertSamples_EmptyBatch(t *testing.T) {
	database := setupTestDB(t)

	if err := database.InsertSamples("whatever", nil); err != nil {
		t.Errorf("expected empty batch to be a no-op, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	database := setupTestDB(t)

	value, err := database.GetSetting(SettingTeamNumber, "0")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "0" {
		t.Errorf("expected fallback for unset key, got %q", value)
	}

	if err := database.SetSetting(SettingTeamNumber, "9999"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	value, err = database.GetSetting(SettingTeamNumber, "0")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "9999" {
		t.Errorf("expected 9999, got %q", value)
	}

	// Overwrite
	if err := database.SetSetting(SettingTeamNumber, "1234"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	value, _ = database.GetSetting(SettingTeamNumber, "0")
	if value != "1234" {
		t.Errorf("expected overwrite to 1234, got %q", value)
	}

	if err := database.SetSetting(SettingAngleUnits, "degrees"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	all, err := database.AllSettings()
	if err != nil {
		t.Fatalf("AllSettings failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 settings, got %d", len(all))
	}
	if all[SettingAngleUnits] != "degrees" {
		t.Errorf("expected angle_units=degrees, got %q", all[SettingAngleUnits])
	}

	if err := database.DeleteSetting(SettingAngleUnits); err != nil {
		t.Fatalf("DeleteSetting failed: %v", err)
	}
	value, _ = database.GetSetting(SettingAngleUnits, "radians")
	if value != "radians" {
		t.Errorf("expected fallback after delete, got %q", value)
	}
}
